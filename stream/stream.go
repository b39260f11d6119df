// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package stream provides a reader-based ingest path that emits ordered
// events (metadata, then components, then dependency edges, then
// completion) instead of handing back one monolithic value. Internally a
// NormalizedSbom is still built in full by the chosen dialect parser --
// several of the dialects this module reads require the whole document
// in memory -- but callers never see that intermediate value; they only
// see the event sequence replayed from it.
package stream

import (
	"fmt"
	"io"

	"github.com/sbomlens/sbomlens/model"
	"github.com/sbomlens/sbomlens/sbomerr"
	"github.com/sbomlens/sbomlens/sbomformat"
)

// MaxNonStreamingSize is the largest input New accepts; larger inputs are
// rejected with ParseFileTooLarge. The sbomformat detect-then-parse path
// applies no size limit of its own.
const MaxNonStreamingSize = 512 * 1024 * 1024

// EventKind is the closed set of event shapes an Iterator yields.
type EventKind int

// EventKind values, emitted in this fixed order per document.
const (
	EventMetadata EventKind = iota
	EventComponent
	EventDependency
	EventComplete
)

func (k EventKind) String() string {
	switch k {
	case EventMetadata:
		return "Metadata"
	case EventComponent:
		return "Component"
	case EventDependency:
		return "Dependency"
	case EventComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Event is one item in the stream. Exactly one of the pointer fields is
// non-nil, matching Kind, except for EventComplete which carries none.
type Event struct {
	Kind      EventKind
	Meta      *model.DocumentMeta
	Component *model.Component
	Edge      *model.DependencyEdge
}

// ProgressFunc is invoked as components are emitted. callers get at least
// one call every 100 components, plus a final call covering the remainder.
type ProgressFunc func(componentsEmitted int)

// progressInterval is the component-count cadence spec'd for the
// progress callback.
const progressInterval = 100

// Iterator yields ordered events for a single normalized document. It is
// single-shot: once exhausted, a new Iterator must be created to replay.
type Iterator struct {
	meta       model.DocumentMeta
	components []*model.Component
	edges      []model.DependencyEdge
	onProgress ProgressFunc

	stage   EventKind
	index   int
	started bool
}

// New builds an Iterator by fully detecting and parsing text via registry,
// then preparing to replay it as an event stream. onProgress may be nil.
func New(registry *sbomformat.Registry, text []byte, onProgress ProgressFunc) (*Iterator, error) {
	if len(text) > MaxNonStreamingSize {
		return nil, sbomerr.Parse(sbomerr.ParseFileTooLarge, fmt.Sprintf("input is %d bytes, exceeds %d byte streaming threshold", len(text), MaxNonStreamingSize), nil)
	}
	sbom, err := registry.Parse(text)
	if err != nil {
		return nil, err
	}
	return FromSbom(sbom, onProgress), nil
}

// NewFromReader reads r fully (several dialects require the whole document
// to resolve cross-references) and builds an Iterator over the result.
func NewFromReader(registry *sbomformat.Registry, r io.Reader, onProgress ProgressFunc) (*Iterator, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, sbomerr.IO("reading streaming SBOM input", "", err)
	}
	return New(registry, data, onProgress)
}

// FromSbom builds an Iterator directly from an already-parsed document,
// for callers that parsed via sbomformat themselves.
func FromSbom(sbom *model.NormalizedSbom, onProgress ProgressFunc) *Iterator {
	return &Iterator{
		meta:       sbom.Document,
		components: sbom.Components(),
		edges:      sbom.Edges,
		onProgress: onProgress,
		stage:      EventMetadata,
	}
}

// Next returns the next event, or ok=false once EventComplete has been
// consumed. Calling Next again after exhaustion returns ok=false.
func (it *Iterator) Next() (Event, bool) {
	switch it.stage {
	case EventMetadata:
		it.stage = EventComponent
		meta := it.meta
		return Event{Kind: EventMetadata, Meta: &meta}, true

	case EventComponent:
		if it.index < len(it.components) {
			c := it.components[it.index]
			it.index++
			if it.onProgress != nil && (it.index%progressInterval == 0 || it.index == len(it.components)) {
				it.onProgress(it.index)
			}
			return Event{Kind: EventComponent, Component: c}, true
		}
		it.stage = EventDependency
		it.index = 0
		return it.Next()

	case EventDependency:
		if it.index < len(it.edges) {
			e := it.edges[it.index]
			it.index++
			return Event{Kind: EventDependency, Edge: &e}, true
		}
		it.stage = EventComplete
		return Event{Kind: EventComplete}, true

	default:
		return Event{}, false
	}
}

// Drain consumes every remaining event, invoking fn for each. It stops
// early and returns fn's error if fn returns non-nil.
func (it *Iterator) Drain(fn func(Event) error) error {
	for {
		ev, ok := it.Next()
		if !ok {
			return nil
		}
		if err := fn(ev); err != nil {
			return err
		}
		if ev.Kind == EventComplete {
			return nil
		}
	}
}
