// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cparams

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// Params holds one immutable set of values for the fields of a ParamsType.
//
// Immutability is a hard invariant: the hash is memoized on first computation
// and must never go stale. There is no mutating API; Set and Delete exist only
// to document the contract and always fail.
//
// Values are stored as given; use ParamsType.ParamsFromSources or
// ParamsType.Filter to build a Params with values already coerced to each
// field type's canonical representation, which is what the per-type equality
// and signature code assumes.
type Params struct {
	paramsType *ParamsType
	values     map[string]any

	hashOnce sync.Once
	hash     uint64
}

// NewParams wraps values into a Params bound to paramsType. Every field
// declared by paramsType must be present in values; extra keys are kept and
// readable but do not participate in equality or hashing.
func NewParams(paramsType *ParamsType, values map[string]any) (*Params, error) {
	if paramsType == nil {
		return nil, errors.Errorf("cparams.NewParams: paramsType is nil")
	}
	for _, field := range paramsType.fields {
		if _, found := values[field]; !found {
			return nil, errors.Errorf("cparams.NewParams: ParamsType field %q missing from values", field)
		}
	}
	return &Params{
		paramsType: paramsType,
		values:     maps.Clone(values),
	}, nil
}

// ParamsType returns the owning schema.
func (p *Params) ParamsType() *ParamsType { return p.paramsType }

// Get returns the value stored under field.
func (p *Params) Get(field string) (any, error) {
	value, found := p.values[field]
	if !found {
		return nil, errors.Errorf("cparams.Params: field %q does not exist", field)
	}
	return value, nil
}

// MustGet is like Get but panics if the field does not exist.
func (p *Params) MustGet(field string) any {
	value, found := p.values[field]
	if !found {
		exceptions.Panicf("cparams.Params: field %q does not exist", field)
	}
	return value
}

// Set always fails: Params are immutable.
func (p *Params) Set(field string, value any) error {
	return errors.Errorf("cparams.Params is immutable: cannot set field %q", field)
}

// Delete always fails: Params are immutable.
func (p *Params) Delete(field string) error {
	return errors.Errorf("cparams.Params is immutable: cannot delete field %q", field)
}

// AsMap returns a copy of the stored values, usable as the string-keyed
// mapping the generated C extraction code reads from.
func (p *Params) AsMap() map[string]any { return maps.Clone(p.values) }

// String lists the values as field:goType:value, sorted by field.
func (p *Params) String() string {
	keys := maps.Keys(p.values)
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = fmt.Sprintf("%s:%T:%v", key, p.values[key], p.values[key])
	}
	return fmt.Sprintf("Params(%s)", strings.Join(parts, ", "))
}

// Equal reports whether other is bound to an equal ParamsType and every field
// value compares equal under the field type's own equality notion.
func (p *Params) Equal(other *Params) bool {
	if p == other {
		return true
	}
	if other == nil || !p.paramsType.Equal(other.paramsType) {
		return false
	}
	for i, field := range p.paramsType.fields {
		if !p.paramsType.types[i].ValuesEq(p.values[field], other.values[field]) {
			return false
		}
	}
	return true
}

// Hash of the Params, derived from the ParamsType hash and each field value's
// signature. It is computed once and memoized; concurrent calls are safe.
// Equal Params have equal hashes.
//
// It panics if a field value cannot produce a signature, which only happens on
// values that were never filtered through their field type.
func (p *Params) Hash() uint64 {
	p.hashOnce.Do(func() {
		h := sha256.New()
		h.Write([]byte(p.paramsType.name))
		for i, field := range p.paramsType.fields {
			signature, err := p.paramsType.types[i].Signature(p.values[field])
			if err != nil {
				exceptions.Panicf("cparams.Params.Hash: field %q: %+v", field, err)
			}
			h.Write([]byte{0})
			h.Write([]byte(signature))
		}
		p.hash = binary.BigEndian.Uint64(h.Sum(nil)[:8])
	})
	return p.hash
}
