package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty input", func(t *testing.T) {
		r := newTestResolver(newFaultyStore(), nil, ResolverConfig{})
		if _, err := r.Resolve(ctx, nil); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("Resolve(nil) error = %v, want ErrInvalidRequest", err)
		}
		if _, err := r.Resolve(ctx, &domain.Descriptor{Brand: "Weller"}); !errors.Is(err, domain.ErrUnresolvableKey) {
			t.Errorf("Resolve() error = %v, want ErrUnresolvableKey", err)
		}
	})

	t.Run("creates then auto merges", func(t *testing.T) {
		store := newFaultyStore()
		r := newTestResolver(store, nil, ResolverConfig{})

		first, err := r.Resolve(ctx, &domain.Descriptor{Name: "Eagle Rare 10", Distillery: "Buffalo Trace"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if first.Outcome != domain.OutcomeCreated {
			t.Errorf("Outcome = %s, want created", first.Outcome)
		}

		second, err := r.Resolve(ctx, &domain.Descriptor{
			Name: "eagle rare 10", Distillery: "BUFFALO TRACE",
			Identifiers: []domain.Identifier{{Code: "080244009236", Weight: domain.WeightScanned}},
		})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if second.ResolvedID != first.ResolvedID || second.Outcome != domain.OutcomeAutoMerged || second.Confidence != 100 {
			t.Errorf("second = %+v, want auto merge into %s", second, first.ResolvedID)
		}
		if entry := mustGet(t, store, first.ResolvedID); !entry.HasIdentifier("080244009236") {
			t.Errorf("Identifiers = %+v, want scanned UPC appended", entry.Identifiers)
		}
	})

	t.Run("fuzzy match above threshold merges", func(t *testing.T) {
		store := newFaultyStore()
		r := newTestResolver(store, nil, ResolverConfig{})
		seeded, err := r.Resolve(ctx, &domain.Descriptor{Name: "Blanton's Single Barrel", Specs: domain.Specs{Proof: 93}})
		if err != nil {
			t.Fatalf("seed error = %v", err)
		}

		got, err := r.Resolve(ctx, &domain.Descriptor{Name: "Blanton's Single Barrel Bourbon", Specs: domain.Specs{Proof: 93}, Category: "Bourbon"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got.Outcome != domain.OutcomeMerged || got.ResolvedID != seeded.ResolvedID || got.Confidence < 85 {
			t.Errorf("Resolve() = %+v, want merged into %s", got, seeded.ResolvedID)
		}
		if entry := mustGet(t, store, seeded.ResolvedID); entry.Category != "Bourbon" || entry.Name != "Blanton's Single Barrel" {
			t.Errorf("entry = %+v, want category filled and name kept", entry)
		}
	})

	t.Run("short catalog name absorbs a fuller label", func(t *testing.T) {
		store := newFaultyStore()
		seedEntry(t, store, "blantons", domain.Descriptor{Name: "Blanton's", Distillery: "Buffalo Trace", Specs: domain.Specs{Proof: 93}})
		r := newTestResolver(store, nil, ResolverConfig{})

		d := DescriptorFromFields(domain.ImportRow{
			domain.FieldWine:    "Blanton's Single Barrel",
			domain.FieldProof:   "93",
			domain.FieldBarcode: "080244002039",
		})
		got, err := r.Resolve(ctx, &d)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got.Outcome != domain.OutcomeMerged || got.ResolvedID != "blantons" || got.Confidence < 85 {
			t.Errorf("Resolve() = %+v, want merged into blantons", got)
		}
		if entry := mustGet(t, store, "blantons"); !entry.HasIdentifier("080244002039") || entry.Name != "Blanton's" {
			t.Errorf("entry = %+v, want UPC appended and name kept", entry)
		}
	})

	t.Run("variant flag keeps products apart", func(t *testing.T) {
		store := newFaultyStore()
		cache := NewMockCacheRepository()
		r := newTestResolver(store, cache, ResolverConfig{})
		upc := []domain.Identifier{{Code: "080244009236", Weight: domain.WeightScanned}}

		plain, err := r.Resolve(ctx, &domain.Descriptor{Name: "Eagle Rare 10", Distillery: "Buffalo Trace", Identifiers: upc})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		pickDesc := &domain.Descriptor{Name: "Eagle Rare 10", Distillery: "Buffalo Trace", VariantFlag: "Store Pick", Identifiers: upc}
		pick, err := r.Resolve(ctx, pickDesc)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if pick.ResolvedID == plain.ResolvedID || pick.Outcome != domain.OutcomeCreated {
			t.Errorf("store pick = %+v, want its own entry", pick)
		}

		again, err := r.Resolve(ctx, pickDesc)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if again.ResolvedID != pick.ResolvedID || again.Outcome != domain.OutcomeAutoMerged {
			t.Errorf("repeat store pick = %+v, want auto merge into %s", again, pick.ResolvedID)
		}
		if store.Size() != 2 {
			t.Errorf("store size = %d, want 2", store.Size())
		}
	})

	t.Run("cached entry of another variant is ignored", func(t *testing.T) {
		store := newFaultyStore()
		seedEntry(t, store, "plain", domain.Descriptor{Name: "Eagle Rare 10", Distillery: "Buffalo Trace"})
		cache := NewMockCacheRepository()
		r := newTestResolver(store, cache, ResolverConfig{})

		d := &domain.Descriptor{Name: "Eagle Rare 10", Distillery: "Buffalo Trace", VariantFlag: "Store Pick"}
		cache.data[cacheKey(GroupKey(d))] = "plain"
		got, err := r.Resolve(ctx, d)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got.ResolvedID == "plain" || got.Outcome != domain.OutcomeCreated {
			t.Errorf("Resolve() = %+v, want a new store pick entry", got)
		}
		if entry := mustGet(t, store, "plain"); entry.VariantFlag != "" {
			t.Errorf("plain entry variant = %q, want untouched", entry.VariantFlag)
		}
	})

	t.Run("follows merge redirects", func(t *testing.T) {
		store := newFaultyStore()
		seedEntry(t, store, "keep", domain.Descriptor{Name: "Weller 12"})
		seedEntry(t, store, "dupe", domain.Descriptor{Name: "W.L. Weller 12 Year", ExternalID: "f-7"})
		if err := store.MarkMerged(ctx, "dupe", "keep"); err != nil {
			t.Fatal(err)
		}
		r := newTestResolver(store, nil, ResolverConfig{})

		got, err := r.Resolve(ctx, &domain.Descriptor{Name: "Weller Twelve", ExternalID: "f-7"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got.ResolvedID != "keep" {
			t.Errorf("ResolvedID = %s, want keep", got.ResolvedID)
		}
	})

	t.Run("remembers resolved keys", func(t *testing.T) {
		store := newFaultyStore()
		cache := NewMockCacheRepository()
		r := newTestResolver(store, cache, ResolverConfig{})
		d := &domain.Descriptor{Name: "Stagg Jr", Distillery: "Buffalo Trace"}

		first, _ := r.Resolve(ctx, d)
		key := cacheKey(GroupKey(d))
		if cache.data[key] != first.ResolvedID {
			t.Fatalf("cache[%s] = %v, want %s", key, cache.data[key], first.ResolvedID)
		}

		cache.data[key] = "stale-id"
		second, err := r.Resolve(ctx, d)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if second.ResolvedID != first.ResolvedID {
			t.Errorf("ResolvedID = %s, want stale cache entry ignored", second.ResolvedID)
		}
	})

	t.Run("cache write failure is not fatal", func(t *testing.T) {
		cache := NewMockCacheRepository()
		cache.setError = errors.New("full")
		r := newTestResolver(newFaultyStore(), cache, ResolverConfig{})
		if _, err := r.Resolve(ctx, &domain.Descriptor{Name: "Weller 12"}); err != nil {
			t.Errorf("Resolve() error = %v", err)
		}
	})
}

func TestResolver_Suggest(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	seedEntry(t, store, "a", domain.Descriptor{Name: "Blanton's Single Barrel", Specs: domain.Specs{Proof: 93}})
	seedEntry(t, store, "b", domain.Descriptor{Name: "Blanton's Gold", Specs: domain.Specs{Proof: 103}})
	seedEntry(t, store, "c", domain.Descriptor{Name: "Weller 12"})
	r := newTestResolver(store, nil, ResolverConfig{Policy: Policy{ReviewLimit: 1}})

	if _, err := r.Suggest(ctx, &domain.Descriptor{}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("Suggest(empty) error = %v, want ErrInvalidRequest", err)
	}

	got, err := r.Suggest(ctx, &domain.Descriptor{Name: "Blanton's Single Barrel Bourbon", Specs: domain.Specs{Proof: 93}})
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(got) != 1 || got[0].Entry.ID != "a" {
		t.Errorf("Suggest() = %+v, want only the best candidate", got)
	}

	got, _ = r.Suggest(ctx, &domain.Descriptor{Name: "Weller 12"})
	if len(got) != 1 || got[0].Entry.ID != "c" || !got[0].Exact || got[0].Confidence != 100 {
		t.Errorf("Suggest() = %+v, want exact match first", got)
	}
	if store.Size() != 3 {
		t.Errorf("Suggest wrote to the store: size = %d", store.Size())
	}
}

func TestResolver_ImportRows(t *testing.T) {
	ctx := context.Background()

	t.Run("rows sharing an external id resolve once", func(t *testing.T) {
		store := newFaultyStore()
		r := newTestResolver(store, nil, ResolverConfig{Workers: 4})
		rows := []domain.ImportRow{
			{"iWine": "12345", "Wine": "Eagle Rare 10", "Price": "39.99"},
			{"iWine": "555", "Wine": "Weller 12"},
			{"iWine": "12345", "Wine": "Eagle Rare 10", "Price": "44.99"},
			{"iWine": "999"},
		}

		report, err := r.ImportRows(ctx, rows, cellarMapping)
		if err != nil {
			t.Fatalf("ImportRows() error = %v", err)
		}
		if len(report.Rows) != 3 || report.Rows[0].Ref != "row 1" || report.Rows[2].Ref != "row 3" {
			t.Fatalf("Rows = %+v", report.Rows)
		}
		if report.Rows[0].ResolvedID != report.Rows[2].ResolvedID {
			t.Errorf("rows 1 and 3 resolved to %s and %s", report.Rows[0].ResolvedID, report.Rows[2].ResolvedID)
		}
		want := domain.BatchCounters{Created: 2, Existing: 1, Failed: 1}
		if report.Counters != want {
			t.Errorf("Counters = %+v, want %+v", report.Counters, want)
		}
		if len(report.Errors) != 1 || report.Errors[0].Ref != "row 4" || report.Errors[0].Kind != domain.KindValidation {
			t.Errorf("Errors = %+v, want row 4 validation", report.Errors)
		}
		if store.Size() != 2 {
			t.Errorf("store size = %d, want 2", store.Size())
		}
	})

	t.Run("variant column splits a group", func(t *testing.T) {
		store := newFaultyStore()
		r := newTestResolver(store, nil, ResolverConfig{Workers: 2})
		mapping := domain.ColumnMapping{domain.FieldVariant: "Variant"}
		for field, header := range cellarMapping {
			mapping[field] = header
		}
		rows := []domain.ImportRow{
			{"Wine": "Eagle Rare 10", "Producer": "Buffalo Trace"},
			{"Wine": "Eagle Rare 10", "Producer": "Buffalo Trace", "Variant": "Store Pick"},
		}

		report, err := r.ImportRows(ctx, rows, mapping)
		if err != nil {
			t.Fatalf("ImportRows() error = %v", err)
		}
		if report.Groups != 2 || len(report.Rows) != 2 || report.Rows[0].ResolvedID == report.Rows[1].ResolvedID {
			t.Errorf("report = %+v, want two distinct entries", report)
		}
		if report.Counters.Created != 2 || store.Size() != 2 {
			t.Errorf("Counters = %+v, store size = %d", report.Counters, store.Size())
		}
	})

	t.Run("error list is capped", func(t *testing.T) {
		r := newTestResolver(newFaultyStore(), nil, ResolverConfig{MaxReportedErrors: 2})
		rows := make([]domain.ImportRow, 5)
		for i := range rows {
			rows[i] = domain.ImportRow{"Wine": "N/A"}
		}

		report, err := r.ImportRows(ctx, rows, cellarMapping)
		if err != nil {
			t.Fatalf("ImportRows() error = %v", err)
		}
		if len(report.Errors) != 2 || report.Truncated != 3 || report.Counters.Failed != 5 {
			t.Errorf("report = %d errors, %d truncated, %d failed", len(report.Errors), report.Truncated, report.Counters.Failed)
		}
	})

	t.Run("infrastructure failure aborts", func(t *testing.T) {
		store := newFaultyStore()
		store.insertErr = domain.ErrStoreUnavailable
		r := newTestResolver(store, nil, ResolverConfig{})

		_, err := r.ImportRows(ctx, []domain.ImportRow{{"Wine": "Weller 12"}}, cellarMapping)
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			t.Errorf("ImportRows() error = %v, want ErrStoreUnavailable", err)
		}
	})

	t.Run("cancellation returns a partial report", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		r := newTestResolver(newFaultyStore(), nil, ResolverConfig{})

		report, err := r.ImportRows(canceled, []domain.ImportRow{{"Wine": "Weller 12"}, {"Wine": "Stagg Jr"}}, cellarMapping)
		if err != nil {
			t.Fatalf("ImportRows() error = %v", err)
		}
		if !report.Canceled || report.Counters.Failed != 2 || report.Errors[0].Kind != kindCanceled {
			t.Errorf("report = %+v, want canceled rows", report)
		}
	})
}

func TestResolver_ExternalIDNamespaces(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	r := newTestResolver(store, NewMockCacheRepository(), ResolverConfig{})

	imported, err := r.ImportRows(ctx, []domain.ImportRow{
		{"iWine": "12345", "Wine": "Eagle Rare 10", "Producer": "Buffalo Trace"},
	}, cellarMapping)
	if err != nil {
		t.Fatalf("ImportRows() error = %v", err)
	}
	eagle := imported.Rows[0].ResolvedID

	synced, err := r.SyncRecords(ctx, []domain.ExternalRecord{{FeedID: "12345", Name: "Totally New Release XYZ", Proof: 101}})
	if err != nil {
		t.Fatalf("SyncRecords() error = %v", err)
	}
	if len(synced.Rows) != 1 || synced.Rows[0].Outcome != domain.OutcomeCreated || synced.Rows[0].ResolvedID == eagle {
		t.Fatalf("feed rows = %+v, want a new entry", synced.Rows)
	}

	entry := mustGet(t, store, eagle)
	if entry.Provenance.ExternalID != "iwine:12345" || entry.Specs.Proof != 0 {
		t.Errorf("imported entry = %+v, want feed specs kept out", entry)
	}

	again, err := r.SyncRecords(ctx, []domain.ExternalRecord{{FeedID: "12345", Name: "Totally New Release XYZ"}})
	if err != nil {
		t.Fatalf("SyncRecords() error = %v", err)
	}
	if again.Rows[0].ResolvedID != synced.Rows[0].ResolvedID || again.Rows[0].Outcome != domain.OutcomeAutoMerged {
		t.Errorf("repeat sync = %+v, want auto merge into %s", again.Rows[0], synced.Rows[0].ResolvedID)
	}
	if store.Size() != 2 {
		t.Errorf("store size = %d, want 2", store.Size())
	}
}

func TestResolver_SyncRecords(t *testing.T) {
	store := newFaultyStore()
	r := newTestResolver(store, nil, ResolverConfig{})

	report, err := r.SyncRecords(context.Background(), []domain.ExternalRecord{
		{FeedID: "n1", Name: "Totally New Release XYZ", Proof: 101, UPCs: []string{"0001"}},
	})
	if err != nil {
		t.Fatalf("SyncRecords() error = %v", err)
	}
	if report.Counters.Created != 1 {
		t.Fatalf("Counters = %+v", report.Counters)
	}

	entry := mustGet(t, store, report.Rows[0].ResolvedID)
	if entry.Provenance.Source != domain.SourceExternalFeed || entry.Provenance.ExternalID != "feed:n1" {
		t.Errorf("Provenance = %+v", entry.Provenance)
	}
	if entry.Specs.ABV != 50.5 || !entry.HasIdentifier("0001") {
		t.Errorf("entry = %+v", entry)
	}
}
