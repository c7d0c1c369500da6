package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/clindoc/normalizer/service"
)

// LoadStats contains statistics about catalogue loading.
type LoadStats struct {
	Concepts     int
	Translations int
	ValueSets    int
	Skipped      int
}

// catalogueFile is the JSON exchange shape produced by the external
// catalogue export. Field names follow the export, not Go conventions.
type catalogueFile struct {
	Concepts []struct {
		Code           string `json:"code"`
		CodeSystemOID  string `json:"codeSystemOid"`
		Status         string `json:"status"`
		DefaultDisplay string `json:"defaultDisplay"`
		Translations   []struct {
			Language string `json:"language"`
			Country  string `json:"country"`
			Display  string `json:"translatedDisplay"`
		} `json:"translations"`
		ValueSetOIDs []string `json:"valueSetOids"`
	} `json:"concepts"`
}

// Load reads a catalogue export from r into the store.
// Concepts without a code or system are counted as skipped, never fatal.
func (s *MemoryStore) Load(r io.Reader) (*LoadStats, error) {
	var file catalogueFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}

	stats := &LoadStats{}
	seenValueSets := make(map[string]struct{})
	for _, c := range file.Concepts {
		if c.Code == "" || c.CodeSystemOID == "" {
			stats.Skipped++
			continue
		}
		status := service.ConceptStatus(c.Status)
		if status == "" {
			status = service.StatusActive
		}
		rec := service.ConceptRecord{
			Code:           c.Code,
			SystemOID:      c.CodeSystemOID,
			Status:         status,
			DefaultDisplay: c.DefaultDisplay,
		}
		s.AddConcept(rec)
		stats.Concepts++

		for _, tr := range c.Translations {
			if tr.Language == "" || tr.Display == "" {
				stats.Skipped++
				continue
			}
			s.AddTranslation(c.Code, c.CodeSystemOID, service.ConceptTranslation{
				Language: tr.Language,
				Country:  tr.Country,
				Display:  tr.Display,
			})
			stats.Translations++
		}

		for _, vsOID := range c.ValueSetOIDs {
			if vsOID == "" {
				continue
			}
			s.AddToValueSet(vsOID, rec)
			if _, seen := seenValueSets[vsOID]; !seen {
				seenValueSets[vsOID] = struct{}{}
				stats.ValueSets++
			}
		}
	}
	return stats, nil
}

// LoadFile reads a catalogue export from disk into the store.
func (s *MemoryStore) LoadFile(path string) (*LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalogue %s: %w", path, err)
	}
	defer f.Close()
	return s.Load(f)
}
