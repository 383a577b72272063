package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/velat/hubcal/internal/adapters/store"
	. "github.com/smartystreets/goconvey/convey"
)

func tempStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hub_calibration.json")
	return store.New(append([]store.Option{store.WithPath(path)}, opts...)...)
}

func TestStoreRoundTrip(t *testing.T) {
	Convey("Given a store in a temp directory", t, func() {
		s := tempStore(t)

		Convey("When no document was ever saved", func() {
			doc, err := s.Load()

			Convey("Then load reports the uncalibrated state, not an error", func() {
				So(err, ShouldBeNil)
				So(doc, ShouldBeNil)
			})
		})

		Convey("When saving a fresh empty document", func() {
			So(s.Save(s.NewDocument()), ShouldBeNil)
			doc, err := s.Load()

			Convey("Then it round-trips with version 1.0 and empty mappings", func() {
				So(err, ShouldBeNil)
				So(doc, ShouldNotBeNil)
				So(doc.Version, ShouldEqual, "1.0")
				So(doc.Mappings, ShouldResemble, map[string]int{})
				So(doc.HubInfo.PrimaryChip, ShouldBeNil)
				So(doc.HubInfo.SecondaryChip, ShouldBeNil)
			})
		})

		Convey("When saving a populated document", func() {
			doc := s.NewDocument()
			doc.Mappings["9&238498F1|2"] = 5
			chip := "9&238498F1"
			doc.HubInfo.PrimaryChip = &chip
			So(s.Save(doc), ShouldBeNil)

			loaded, err := s.Load()

			Convey("Then mappings and hub metadata survive", func() {
				So(err, ShouldBeNil)
				So(loaded.Mappings, ShouldResemble, map[string]int{"9&238498F1|2": 5})
				So(*loaded.HubInfo.PrimaryChip, ShouldEqual, "9&238498F1")
			})
		})

		Convey("When clearing", func() {
			So(s.Save(s.NewDocument()), ShouldBeNil)
			So(s.Clear(), ShouldBeNil)
			doc, err := s.Load()

			Convey("Then load returns absent again", func() {
				So(err, ShouldBeNil)
				So(doc, ShouldBeNil)
			})

			Convey("And clearing twice is a no-op", func() {
				So(s.Clear(), ShouldBeNil)
			})
		})
	})
}

func TestStoreSaveDefaults(t *testing.T) {
	Convey("Given a store with a fixed clock", t, func() {
		now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
		s := tempStore(t, store.WithClock(func() time.Time { return now }))

		Convey("When saving a document with gaps", func() {
			doc := &store.Document{}
			So(s.Save(doc), ShouldBeNil)

			Convey("Then version, timestamps, and mappings are filled", func() {
				So(doc.Version, ShouldEqual, "1.0")
				So(doc.CreatedAt.Equal(now), ShouldBeTrue)
				So(doc.UpdatedAt.Equal(now), ShouldBeTrue)
				So(doc.Mappings, ShouldNotBeNil)
			})
		})

		Convey("When re-saving an existing document", func() {
			doc := s.NewDocument()
			created := doc.CreatedAt
			So(s.Save(doc), ShouldBeNil)

			later := now.Add(time.Hour)
			s2 := store.New(store.WithPath(s.Path()), store.WithClock(func() time.Time { return later }))
			So(s2.Save(doc), ShouldBeNil)

			Convey("Then the update timestamp is refreshed, creation kept", func() {
				So(doc.CreatedAt.Equal(created), ShouldBeTrue)
				So(doc.UpdatedAt.Equal(later), ShouldBeTrue)
			})
		})
	})
}

func TestStoreValidate(t *testing.T) {
	Convey("Given a store", t, func() {
		s := tempStore(t)

		valid := func() *store.Document {
			doc := s.NewDocument()
			doc.Mappings["9&238498F1|2"] = 5
			return doc
		}

		Convey("Then a well-formed document passes", func() {
			So(s.Validate(valid()), ShouldBeNil)
		})

		Convey("Then a nil document is rejected", func() {
			So(errors.Is(s.Validate(nil), store.ErrSchema), ShouldBeTrue)
		})

		Convey("Then a wrong version string is rejected", func() {
			doc := valid()
			doc.Version = "2.0"
			So(errors.Is(s.Validate(doc), store.ErrSchema), ShouldBeTrue)
		})

		Convey("Then missing mappings are rejected", func() {
			doc := valid()
			doc.Mappings = nil
			So(errors.Is(s.Validate(doc), store.ErrSchema), ShouldBeTrue)
		})

		Convey("Then out-of-range port values are rejected", func() {
			for _, port := range []int{0, 8, -1} {
				doc := valid()
				doc.Mappings["9&238498F1|3"] = port
				So(errors.Is(s.Validate(doc), store.ErrSchema), ShouldBeTrue)
			}
		})

		Convey("Then malformed keys are rejected", func() {
			doc := valid()
			doc.Mappings["abc|3"] = 2
			So(errors.Is(s.Validate(doc), store.ErrSchema), ShouldBeTrue)
		})

		Convey("Then lowercase hex in keys is accepted", func() {
			doc := valid()
			doc.Mappings["9&238498f1|3"] = 2
			So(s.Validate(doc), ShouldBeNil)
		})
	})
}

func TestStoreLoadFailures(t *testing.T) {
	Convey("Given a store whose file holds bad content", t, func() {
		s := tempStore(t)

		Convey("When the payload is unparseable", func() {
			So(os.WriteFile(s.Path(), []byte("{not json"), 0o644), ShouldBeNil)
			_, err := s.Load()

			Convey("Then load fails with ErrCorrupt", func() {
				So(errors.Is(err, store.ErrCorrupt), ShouldBeTrue)
				So(errors.Is(err, store.ErrSchema), ShouldBeFalse)
			})
		})

		Convey("When the payload is valid JSON but not an object", func() {
			So(os.WriteFile(s.Path(), []byte(`[1, 2, 3]`), 0o644), ShouldBeNil)
			_, err := s.Load()

			Convey("Then load fails with ErrSchema", func() {
				So(errors.Is(err, store.ErrSchema), ShouldBeTrue)
			})
		})

		Convey("When the document has a wrong version", func() {
			So(os.WriteFile(s.Path(), []byte(`{"version":"0.9","mappings":{}}`), 0o644), ShouldBeNil)
			_, err := s.Load()

			Convey("Then load fails with ErrSchema", func() {
				So(errors.Is(err, store.ErrSchema), ShouldBeTrue)
			})
		})

		Convey("When a mapping value is out of range", func() {
			So(os.WriteFile(s.Path(), []byte(`{"version":"1.0","mappings":{"9&238498F1|2":8}}`), 0o644), ShouldBeNil)
			_, err := s.Load()

			Convey("Then load fails with ErrSchema", func() {
				So(errors.Is(err, store.ErrSchema), ShouldBeTrue)
			})
		})
	})
}
