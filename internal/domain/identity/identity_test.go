package identity_test

import (
	"testing"

	"github.com/velat/hubcal/internal/domain/identity"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExtractChipPrefix(t *testing.T) {
	Convey("Given parent-chain identifiers", t, func() {
		Convey("When the chain carries a chip prefix", func() {
			prefix, ok := identity.ExtractChipPrefix(`USB\VID_2109&PID_0822\9&238498F1&0&3`)

			Convey("Then the prefix is captured uppercased", func() {
				So(ok, ShouldBeTrue)
				So(prefix, ShouldEqual, "9&238498F1")
			})
		})

		Convey("When the hex portion is lowercase", func() {
			prefix, ok := identity.ExtractChipPrefix(`USB\VID_2109&PID_2817\9&238498f1&0&4`)

			Convey("Then extraction is case-normalizing", func() {
				So(ok, ShouldBeTrue)
				So(prefix, ShouldEqual, "9&238498F1")
			})
		})

		Convey("When the same chain is seen via either speed-class node", func() {
			// The 2.0 and 3.0 device nodes differ only in trailing segments.
			a, okA := identity.ExtractChipPrefix(`USB\VID_2109&PID_0822\9&238498F1&0&3`)
			b, okB := identity.ExtractChipPrefix(`USB\VID_2109&PID_2822\9&238498F1&0&7`)

			Convey("Then both yield an identical prefix", func() {
				So(okA, ShouldBeTrue)
				So(okB, ShouldBeTrue)
				So(a, ShouldEqual, b)
			})
		})

		Convey("When extraction is repeated on the same input", func() {
			first, _ := identity.ExtractChipPrefix(`USB\VID_2109&PID_0822\9&238498F1&0&3`)
			second, _ := identity.ExtractChipPrefix(`USB\VID_2109&PID_0822\9&238498F1&0&3`)

			Convey("Then it is idempotent", func() {
				So(first, ShouldEqual, second)
			})
		})

		Convey("When the input is empty or has no match", func() {
			_, okEmpty := identity.ExtractChipPrefix("")
			_, okJunk := identity.ExtractChipPrefix("not a pnp identifier")

			Convey("Then extraction reports absent, never an error", func() {
				So(okEmpty, ShouldBeFalse)
				So(okJunk, ShouldBeFalse)
			})
		})
	})
}

func TestExtractPortIndex(t *testing.T) {
	Convey("Given location strings", t, func() {
		cases := map[string]string{
			"Port_#0003.Hub_#0001": "3",
			"Port_#0000.Hub_#0002": "0",
			"Port_#42":             "42",
			"Port_#0012.Hub_#0008": "12",
		}

		Convey("When extracting the port index", func() {
			for in, want := range cases {
				got, ok := identity.ExtractPortIndex(in)
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, want)
			}
		})

		Convey("When the location has no port marker", func() {
			_, ok := identity.ExtractPortIndex("Hub_#0008")
			So(ok, ShouldBeFalse)
		})

		Convey("When the location is empty", func() {
			_, ok := identity.ExtractPortIndex("")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestNormalizeLocation(t *testing.T) {
	Convey("Given raw topology strings", t, func() {
		location := "Port_#0002.Hub_#0008"
		parent := `USB\VID_2109&PID_0822\9&238498F1&0&3`

		Convey("When both extractions succeed", func() {
			key, ok := identity.NormalizeLocation(location, parent)

			Convey("Then the key is chipPrefix|portIndex", func() {
				So(ok, ShouldBeTrue)
				So(key.String(), ShouldEqual, "9&238498F1|2")
				So(key.Chip(), ShouldEqual, "9&238498F1")
				So(key.Port(), ShouldEqual, "2")
			})

			Convey("And the key round-trips against the key pattern", func() {
				So(identity.KeyPattern.MatchString(key.String()), ShouldBeTrue)
			})
		})

		Convey("When either extraction fails", func() {
			_, okNoParent := identity.NormalizeLocation(location, "")
			_, okNoLocation := identity.NormalizeLocation("", parent)
			_, okBadParent := identity.NormalizeLocation(location, "garbage")
			_, okBadLocation := identity.NormalizeLocation("Hub_#0008", parent)

			Convey("Then no key is produced", func() {
				So(okNoParent, ShouldBeFalse)
				So(okNoLocation, ShouldBeFalse)
				So(okBadParent, ShouldBeFalse)
				So(okBadLocation, ShouldBeFalse)
			})
		})

		Convey("When called repeatedly with identical inputs", func() {
			a, _ := identity.NormalizeLocation(location, parent)
			b, _ := identity.NormalizeLocation(location, parent)

			Convey("Then the key is stable", func() {
				So(a, ShouldEqual, b)
			})
		})
	})
}
