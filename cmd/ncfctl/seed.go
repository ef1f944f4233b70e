package main

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"ncfledger/internal/app"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/owner"
	"ncfledger/internal/domain/sequence"
)

// SeedFile is the YAML layout accepted by `ncfctl seed`.
type SeedFile struct {
	Owners []SeedOwner `yaml:"owners"`
}

type SeedOwner struct {
	Name           string         `yaml:"name"`
	RNC            string         `yaml:"rnc"`
	DGIIName       string         `yaml:"dgiiName"`
	AutoAssign     *bool          `yaml:"autoAssign"`
	BlockOnFailure *bool          `yaml:"blockOnFailure"`
	AlertDays      *int           `yaml:"alertDays"`
	LowAvailable   float64        `yaml:"lowAvailabilityThreshold"`
	RequireRule    string         `yaml:"requireRule"`
	Sequences      []SeedSequence `yaml:"sequences"`
}

type SeedSequence struct {
	DocumentType string `yaml:"documentType"`
	Prefix       string `yaml:"prefix"`
	RangeStart   int64  `yaml:"rangeStart"`
	RangeEnd     int64  `yaml:"rangeEnd"`
	ValidFrom    string `yaml:"validFrom"`
	ValidUntil   string `yaml:"validUntil"`
	Activate     bool   `yaml:"activate"`
}

// SeedResult counts created records.
type SeedResult struct {
	Owners    int `json:"owners"`
	Sequences int `json:"sequences"`
}

func parseSeed(data []byte) (*SeedFile, error) {
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if len(f.Owners) == 0 {
		return nil, fmt.Errorf("seed file has no owners")
	}
	return &f, nil
}

// applySeed creates each owner and its sequences. An omitted validFrom
// means today.
func applySeed(ctx context.Context, svc *app.Services, f *SeedFile) (SeedResult, error) {
	var res SeedResult
	for _, so := range f.Owners {
		o := owner.New(so.Name, so.RNC)
		o.DGIIName = so.DGIIName
		o.RequireRule = so.RequireRule
		if so.AutoAssign != nil {
			o.AutoAssign = *so.AutoAssign
		}
		if so.BlockOnFailure != nil {
			o.BlockOnFailure = *so.BlockOnFailure
		}
		if so.AlertDays != nil {
			o.AlertDays = *so.AlertDays
		}
		if so.LowAvailable > 0 {
			o.LowAvailabilityThreshold = so.LowAvailable
		}
		if err := svc.Owners.Create(ctx, o); err != nil {
			return res, fmt.Errorf("owner %q: %w", so.Name, err)
		}
		res.Owners++

		for i, ss := range so.Sequences {
			spec, err := ss.spec(o, svc.Sequences.Today())
			if err != nil {
				return res, fmt.Errorf("owner %q sequence %d: %w", so.Name, i+1, err)
			}
			if _, err := svc.Sequences.Create(ctx, spec); err != nil {
				return res, fmt.Errorf("owner %q sequence %d: %w", so.Name, i+1, err)
			}
			res.Sequences++
		}
	}
	return res, nil
}

func (ss SeedSequence) spec(o *owner.Owner, today time.Time) (sequence.Spec, error) {
	dt, err := ncf.ParseDocumentType(ss.DocumentType)
	if err != nil {
		return sequence.Spec{}, err
	}
	spec := sequence.Spec{
		OwnerID:      o.ID,
		Prefix:       ss.Prefix,
		DocumentType: dt,
		RangeStart:   ss.RangeStart,
		RangeEnd:     ss.RangeEnd,
		ValidFrom:    today,
		Activate:     ss.Activate,
	}
	if spec.Prefix == "" {
		spec.Prefix = dt.SuggestedPrefix()
	}
	if ss.ValidFrom != "" {
		if spec.ValidFrom, err = time.Parse(dateLayout, ss.ValidFrom); err != nil {
			return spec, fmt.Errorf("validFrom: %w", err)
		}
	}
	if ss.ValidUntil != "" {
		if spec.ValidUntil, err = time.Parse(dateLayout, ss.ValidUntil); err != nil {
			return spec, fmt.Errorf("validUntil: %w", err)
		}
	}
	return spec, nil
}
