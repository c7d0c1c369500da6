package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clindoc/normalizer/codesystem"
	"github.com/clindoc/normalizer/service"
)

func seedStore() *MemoryStore {
	s := NewMemoryStore()
	s.AddConcept(service.ConceptRecord{
		Code:           "420134006",
		SystemOID:      codesystem.OIDSnomedCT,
		DefaultDisplay: "Propensity to adverse reactions",
	})
	s.AddTranslation("420134006", codesystem.OIDSnomedCT, service.ConceptTranslation{
		Language: "en",
		Display:  "Propensity to adverse reactions",
	})
	s.AddTranslation("420134006", codesystem.OIDSnomedCT, service.ConceptTranslation{
		Language: "de",
		Display:  "Neigung zu Nebenwirkungen",
	})
	s.AddTranslation("420134006", codesystem.OIDSnomedCT, service.ConceptTranslation{
		Language: "en",
		Country:  "IE",
		Display:  "Propensity to adverse reactions (IE)",
	})
	s.AddConcept(service.ConceptRecord{
		Code:           "12345",
		SystemOID:      codesystem.OIDSnomedCT,
		Status:         service.StatusInactive,
		DefaultDisplay: "Retired concept",
	})
	return s
}

func TestMemoryStore_FindConcept(t *testing.T) {
	s := seedStore()
	ctx := context.Background()

	rec, err := s.FindConcept(ctx, "420134006", codesystem.OIDSnomedCT)
	if err != nil {
		t.Fatalf("FindConcept: %v", err)
	}
	if rec.DefaultDisplay != "Propensity to adverse reactions" {
		t.Errorf("DefaultDisplay = %q", rec.DefaultDisplay)
	}

	// Same code under a different system must miss: dual-key lookup.
	if _, err := s.FindConcept(ctx, "420134006", codesystem.OIDLoinc); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("wrong-system lookup err = %v; want ErrNotFound", err)
	}

	// Inactive concepts are treated as absent.
	if _, err := s.FindConcept(ctx, "12345", codesystem.OIDSnomedCT); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("inactive lookup err = %v; want ErrNotFound", err)
	}
}

func TestMemoryStore_FindTranslation(t *testing.T) {
	s := seedStore()
	ctx := context.Background()
	rec, _ := s.FindConcept(ctx, "420134006", codesystem.OIDSnomedCT)

	tests := []struct {
		name     string
		language string
		country  string
		want     string
		wantErr  bool
	}{
		{"language-wide", "en", "", "Propensity to adverse reactions", false},
		{"country refinement preferred", "en", "IE", "Propensity to adverse reactions (IE)", false},
		{"unmatched country falls back to language row", "en", "MT", "Propensity to adverse reactions", false},
		{"other language", "de", "", "Neigung zu Nebenwirkungen", false},
		{"case-insensitive language", "EN", "", "Propensity to adverse reactions", false},
		{"missing language", "pt", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindTranslation(ctx, rec, tt.language, tt.country)
			if tt.wantErr {
				if !errors.Is(err, service.ErrNotFound) {
					t.Errorf("err = %v; want ErrNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindTranslation: %v", err)
			}
			if got != tt.want {
				t.Errorf("display = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestMemoryStore_FindInValueSet(t *testing.T) {
	s := NewMemoryStore()
	s.AddToValueSet("1.3.6.1.4.1.12559.11.10.1.3.1.42.12", service.ConceptRecord{
		Code:           "260176001",
		SystemOID:      codesystem.OIDSnomedCT,
		DefaultDisplay: "Kiwi fruit",
	})

	rec, err := s.FindInValueSet(context.Background(), "260176001", "1.3.6.1.4.1.12559.11.10.1.3.1.42.12")
	if err != nil {
		t.Fatalf("FindInValueSet: %v", err)
	}
	if rec.DefaultDisplay != "Kiwi fruit" {
		t.Errorf("DefaultDisplay = %q", rec.DefaultDisplay)
	}

	if _, err := s.FindInValueSet(context.Background(), "999999", "1.3.6.1.4.1.12559.11.10.1.3.1.42.12"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("miss err = %v; want ErrNotFound", err)
	}
}

func TestMemoryStore_Load(t *testing.T) {
	catalogue := `{
	  "concepts": [
	    {
	      "code": "420134006",
	      "codeSystemOid": "2.16.840.1.113883.6.96",
	      "defaultDisplay": "Propensity to adverse reactions",
	      "translations": [
	        {"language": "en", "translatedDisplay": "Propensity to adverse reactions"},
	        {"language": "pt", "country": "PT", "translatedDisplay": "Propensão a reações adversas"}
	      ],
	      "valueSetOids": ["1.3.6.1.4.1.12559.11.10.1.3.1.42.12"]
	    },
	    {"code": "", "codeSystemOid": "2.16.840.1.113883.6.96"},
	    {
	      "code": "387517004",
	      "codeSystemOid": "2.16.840.1.113883.6.73",
	      "status": "inactive",
	      "defaultDisplay": "Paracetamol"
	    }
	  ]
	}`

	s := NewMemoryStore()
	stats, err := s.Load(strings.NewReader(catalogue))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.Concepts != 2 || stats.Translations != 2 || stats.ValueSets != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v; want 2 concepts, 2 translations, 1 valueset, 1 skipped", stats)
	}

	// Status from the export is honored.
	if _, err := s.FindConcept(context.Background(), "387517004", "2.16.840.1.113883.6.73"); !errors.Is(err, service.ErrNotFound) {
		t.Error("inactive concept from export should be absent")
	}
}

func TestMemoryStore_Load_Malformed(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Load(strings.NewReader("{not json")); err == nil {
		t.Error("malformed catalogue should return an error")
	}
}
