package validator

import (
	"testing"

	"github.com/pauljones0/discogs-deals/internal/models"
)

func TestValidator_ValidateStruct(t *testing.T) {
	v := New()
	minDiscount := 40
	tooMuch := 140

	tests := []struct {
		name    string
		item    any
		wantErr bool
	}{
		{
			name:    "Valid Want",
			item:    models.WantItem{ID: "42", ReleaseID: 42, Artist: "Can", Title: "Tago Mago", MinCondition: ">=VG+"},
			wantErr: false,
		},
		{
			name:    "Want Missing ID",
			item:    models.WantItem{ReleaseID: 42},
			wantErr: true,
		},
		{
			name:    "Want Zero Release",
			item:    models.WantItem{ID: "0"},
			wantErr: true,
		},
		{
			name:    "Want Bad Condition",
			item:    models.WantItem{ID: "42", ReleaseID: 42, MinCondition: "shiny"},
			wantErr: true,
		},
		{
			name:    "Valid Search",
			item:    models.SavedSearch{ID: "jazz", Query: "blue note", MinDiscount: &minDiscount},
			wantErr: false,
		},
		{
			name:    "Search By Genre Only",
			item:    models.SavedSearch{ID: "jazz", Genres: []string{"Jazz"}},
			wantErr: false,
		},
		{
			name:    "Search Without Criteria",
			item:    models.SavedSearch{ID: "empty"},
			wantErr: true,
		},
		{
			name:    "Search Discount Out Of Range",
			item:    models.SavedSearch{ID: "x", Query: "x", MinDiscount: &tooMuch},
			wantErr: true,
		},
		{
			name:    "Search Bad Currency",
			item:    models.SavedSearch{ID: "x", Query: "x", Currency: "DOLLARS"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.ValidateStruct(tt.item); (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
