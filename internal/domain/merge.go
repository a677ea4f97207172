package domain

// FillMissing copies every patch value whose target field is still unset and
// refreshes the provenance sync fields. Populated fields are never changed.
// It returns the names of the fields that were filled.
func (e *CanonicalEntry) FillMissing(p EntryPatch) []string {
	var filled []string
	fillString := func(name string, dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			filled = append(filled, name)
		}
	}
	fillFloat := func(name string, dst *float64, src float64) {
		if *dst == 0 && src != 0 {
			*dst = src
			filled = append(filled, name)
		}
	}
	fillInt := func(name string, dst *int, src int) {
		if *dst == 0 && src != 0 {
			*dst = src
			filled = append(filled, name)
		}
	}

	fillString("brand", &e.Brand, p.Brand)
	fillString("category", &e.Category, p.Category)
	fillInt("age", &e.Specs.Age, p.Specs.Age)
	fillInt("year", &e.Specs.Year, p.Specs.Year)
	fillFloat("proof", &e.Specs.Proof, p.Specs.Proof)
	fillFloat("abv", &e.Specs.ABV, p.Specs.ABV)
	fillString("statedProof", &e.Specs.StatedProof, p.Specs.StatedProof)
	fillString("size", &e.Specs.Size, p.Specs.Size)
	fillString("country", &e.Specs.Country, p.Specs.Country)
	fillString("region", &e.Specs.Region, p.Specs.Region)
	fillFloat("price", &e.Specs.Price, p.Specs.Price)
	fillString("description", &e.Specs.Description, p.Specs.Description)
	fillString("imageUrl", &e.Specs.ImageURL, p.Specs.ImageURL)
	fillString("externalId", &e.Provenance.ExternalID, p.ExternalID)

	if p.Source != "" {
		e.Provenance.Source = p.Source
	}
	if !p.SyncedAt.IsZero() {
		e.Provenance.LastSyncedAt = p.SyncedAt
		e.Provenance.MergedAt = p.SyncedAt
		e.UpdatedAt = p.SyncedAt
	}
	return filled
}

// AddIdentifiers appends codes not already present and returns how many were added
func (e *CanonicalEntry) AddIdentifiers(ids []Identifier) int {
	added := 0
	for _, id := range ids {
		if id.Code == "" || e.HasIdentifier(id.Code) {
			continue
		}
		e.Identifiers = append(e.Identifiers, id)
		added++
	}
	return added
}
