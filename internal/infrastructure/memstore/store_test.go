package memstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

func testEntry(id, name, distillery string) *domain.CanonicalEntry {
	return &domain.CanonicalEntry{
		ID:         id,
		Name:       name,
		Brand:      "Buffalo Trace",
		Distillery: distillery,
		Provenance: domain.Provenance{Source: domain.SourceManual},
	}
}

func TestStore_InsertDuplicateKey(t *testing.T) {
	ctx := context.Background()
	store := New()

	first := testEntry("e1", "Eagle Rare 10", "Buffalo Trace")
	require.NoError(t, store.Insert(ctx, first))
	assert.Equal(t, int64(1), first.Seq)

	assert.ErrorIs(t, store.Insert(ctx, testEntry("e2", " EAGLE  rare 10", "buffalo trace")), domain.ErrDuplicateKey)
	assert.ErrorIs(t, store.Insert(ctx, testEntry("e1", "Weller 12", "")), domain.ErrDuplicateKey, "id reuse")
	assert.ErrorIs(t, store.Insert(ctx, &domain.CanonicalEntry{Name: "no id"}), domain.ErrInvalidRequest)

	pick := testEntry("e3", "Eagle Rare 10", "Buffalo Trace")
	pick.VariantFlag = "Store Pick"
	assert.NoError(t, store.Insert(ctx, pick))

	byKey, err := store.FindByKey(ctx, domain.UniqueKey{Name: "Eagle Rare 10", Distillery: "BUFFALO TRACE", VariantFlag: "store pick"})
	require.NoError(t, err)
	assert.Equal(t, "e3", byKey.ID)
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_ConcurrentInsertsKeepOneWinner(t *testing.T) {
	store := New()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Insert(context.Background(), testEntry(string(rune('a'+i)), "Weller 12", ""))
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrDuplicateKey)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestStore_SearchMatchesLiterally(t *testing.T) {
	ctx := context.Background()
	store := New()
	for i, name := range []string{"Jack (Batch 2)*", "Jack Daniel's", "Jack.Special", "Old Forester"} {
		require.NoError(t, store.Insert(ctx, testEntry(string(rune('a'+i)), name, "")))
	}

	tests := []struct {
		name  string
		query domain.TextQuery
		want  []string
	}{
		{
			name:  "prefix is case-insensitive",
			query: domain.TextQuery{Field: domain.QueryFieldName, Mode: domain.MatchPrefix, Terms: []string{"JACK"}},
			want:  []string{"Jack (Batch 2)*", "Jack Daniel's", "Jack.Special"},
		},
		{
			name:  "metacharacters are literal",
			query: domain.TextQuery{Field: domain.QueryFieldName, Mode: domain.MatchContains, Terms: []string{"(batch 2)*"}},
			want:  []string{"Jack (Batch 2)*"},
		},
		{
			name:  "dot is not a wildcard",
			query: domain.TextQuery{Field: domain.QueryFieldName, Mode: domain.MatchContains, Terms: []string{"k.s"}},
			want:  []string{"Jack.Special"},
		},
		{
			name:  "terms are OR'd with limit",
			query: domain.TextQuery{Field: domain.QueryFieldName, Mode: domain.MatchContains, Terms: []string{"forester", "daniel"}, Limit: 1},
			want:  []string{"Jack Daniel's"},
		},
		{
			name:  "exact brand",
			query: domain.TextQuery{Field: domain.QueryFieldBrand, Mode: domain.MatchExact, Terms: []string{"buffalo trace"}, Limit: 2},
			want:  []string{"Jack (Batch 2)*", "Jack Daniel's"},
		},
		{
			name:  "exact does not match a prefix",
			query: domain.TextQuery{Field: domain.QueryFieldName, Mode: domain.MatchExact, Terms: []string{"old"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Search(ctx, tt.query)
			require.NoError(t, err)
			var names []string
			for _, e := range got {
				names = append(names, e.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}

	_, err := store.Search(ctx, domain.TextQuery{Field: "proof", Terms: []string{"x"}})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestStore_LookupsPreferActiveEntries(t *testing.T) {
	ctx := context.Background()
	store := New()

	old := testEntry("old", "W.L. Weller 12", "")
	old.Provenance.ExternalID = "F-7"
	old.Identifiers = []domain.Identifier{{Code: "0001", Weight: domain.WeightFeed}}
	active := testEntry("new", "Weller 12", "")
	active.Identifiers = []domain.Identifier{{Code: "0001", Weight: domain.WeightScanned}}
	require.NoError(t, store.Insert(ctx, old))
	require.NoError(t, store.Insert(ctx, active))

	got, err := store.FindByIdentifier(ctx, "0001")
	require.NoError(t, err)
	assert.Equal(t, "old", got.ID, "first inserted while both are active")

	require.NoError(t, store.MarkMerged(ctx, "old", "new"))
	got, err = store.FindByIdentifier(ctx, "0001")
	require.NoError(t, err)
	assert.Equal(t, "new", got.ID)

	got, err = store.FindByExternalID(ctx, "f-7")
	require.NoError(t, err)
	assert.Equal(t, "old", got.ID, "merged entries are still found when nothing active matches")
	assert.Equal(t, "new", got.MergedInto)

	_, err = store.FindByIdentifier(ctx, "")
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
	_, err = store.FindByExternalID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestStore_FillMissingAndIdentifiers(t *testing.T) {
	ctx := context.Background()
	store := New()
	entry := testEntry("e1", "Eagle Rare 10", "Buffalo Trace")
	entry.Specs.Proof = 90
	entry.Identifiers = []domain.Identifier{{Code: "080244009236", Weight: domain.WeightScanned}}
	require.NoError(t, store.Insert(ctx, entry))

	require.NoError(t, store.FillMissing(ctx, "e1", domain.EntryPatch{
		Brand:    "Someone Else",
		Category: "Bourbon",
		Specs:    domain.Specs{Proof: 101, Size: "750ml"},
		Source:   domain.SourceExternalFeed,
	}))
	require.NoError(t, store.AddIdentifiers(ctx, "e1", []domain.Identifier{
		{Code: "080244009236", Weight: domain.WeightFeed},
		{Code: "080244000000", Weight: domain.WeightFeed},
	}))

	got, err := store.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Buffalo Trace", got.Brand)
	assert.Equal(t, "Bourbon", got.Category)
	assert.Equal(t, 90.0, got.Specs.Proof)
	assert.Equal(t, "750ml", got.Specs.Size)
	assert.Equal(t, domain.SourceExternalFeed, got.Provenance.Source)
	require.Len(t, got.Identifiers, 2)
	assert.Equal(t, domain.WeightScanned, got.Identifiers[0].Weight)

	assert.ErrorIs(t, store.FillMissing(ctx, "missing", domain.EntryPatch{}), domain.ErrEntryNotFound)
	assert.ErrorIs(t, store.AddIdentifiers(ctx, "missing", nil), domain.ErrEntryNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := New()
	entry := testEntry("e1", "Eagle Rare 10", "")
	entry.Identifiers = []domain.Identifier{{Code: "a"}}
	require.NoError(t, store.Insert(ctx, entry))

	entry.Name = "changed after insert"
	got, _ := store.Get(ctx, "e1")
	got.Identifiers[0].Code = "changed"
	got.Brand = "changed"

	again, _ := store.Get(ctx, "e1")
	assert.Equal(t, "Eagle Rare 10", again.Name)
	assert.Equal(t, "Buffalo Trace", again.Brand)
	assert.Equal(t, "a", again.Identifiers[0].Code)
}

func TestStore_ScanAndMarkMerged(t *testing.T) {
	ctx := context.Background()
	store := New()
	for i, name := range []string{"A", "B", "C"} {
		require.NoError(t, store.Insert(ctx, testEntry(string(rune('a'+i)), name, "")))
	}
	require.NoError(t, store.MarkMerged(ctx, "b", "a"))
	assert.ErrorIs(t, store.MarkMerged(ctx, "c", "missing"), domain.ErrEntryNotFound)
	assert.ErrorIs(t, store.MarkMerged(ctx, "missing", "a"), domain.ErrEntryNotFound)

	page, err := store.Scan(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].ID)
	assert.Equal(t, "c", page[1].ID)

	page, err = store.Scan(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(3), page[0].Seq)

	found, err := store.Search(ctx, domain.TextQuery{Field: domain.QueryFieldName, Mode: domain.MatchExact, Terms: []string{"b"}})
	require.NoError(t, err)
	assert.Empty(t, found, "merged entries are not searchable")
}

func TestStore_Checkpoints(t *testing.T) {
	ctx := context.Background()
	store := New()

	seq, err := store.LoadCheckpoint(ctx, "dedupe")
	require.NoError(t, err)
	assert.Zero(t, seq)

	require.NoError(t, store.SaveCheckpoint(ctx, "dedupe", 42))
	seq, _ = store.LoadCheckpoint(ctx, "dedupe")
	assert.Equal(t, int64(42), seq)

	seq, _ = store.LoadCheckpoint(ctx, "other")
	assert.Zero(t, seq)
}
