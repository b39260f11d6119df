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

package cyclonedx

import (
	"testing"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/sbomlens/sbomlens/model"
	"github.com/sbomlens/sbomlens/sbomformat"
)

func TestDetectJSONCertainOnRecognizedVersion(t *testing.T) {
	p := New()
	doc := []byte(`{"bomFormat":"CycloneDX","specVersion":"1.5","components":[]}`)
	d := p.Detect(doc)
	if d.Confidence != sbomformat.ConfidenceCertain {
		t.Errorf("Confidence = %v, want Certain", d.Confidence)
	}
	if d.Variant != "JSON" {
		t.Errorf("Variant = %q, want JSON", d.Variant)
	}
}

func TestDetectJSONNoneOnUnrelatedDocument(t *testing.T) {
	p := New()
	d := p.Detect([]byte(`{"hello":"world"}`))
	if d.Confidence != sbomformat.ConfidenceNone {
		t.Errorf("Confidence = %v, want None", d.Confidence)
	}
}

func TestDetectXMLCertainOnVersionedBom(t *testing.T) {
	p := New()
	d := p.Detect([]byte(`<?xml version="1.0"?><bom xmlns="http://cyclonedx.org/schema/bom/1.5" version="1">...</bom>`))
	if d.Confidence != sbomformat.ConfidenceCertain {
		t.Errorf("Confidence = %v, want Certain", d.Confidence)
	}
}

func TestPurlEcosystemMapsKnownTypes(t *testing.T) {
	cases := map[string]model.Ecosystem{
		"pkg:npm/lodash@4.17.21":         model.EcosystemNpm,
		"pkg:pypi/requests@2.25.0":       model.EcosystemPyPI,
		"pkg:cargo/serde@1.0.0":          model.EcosystemCargo,
		"pkg:golang/github.com/x/y@v1.0": model.EcosystemGo,
		"not-a-purl":                     model.Ecosystem{},
	}
	for purl, want := range cases {
		got := purlEcosystem(purl)
		if !got.Equal(want) {
			t.Errorf("purlEcosystem(%q) = %v, want %v", purl, got, want)
		}
	}
}

func TestConvertComponentTypeMapsMLModel(t *testing.T) {
	got := convertComponentType(cdx.ComponentType("machine-learning-model"))
	if got != model.TypeMLModel {
		t.Errorf("convertComponentType(machine-learning-model) = %v, want TypeMLModel", got)
	}
}

func TestConvertComponentTypeFallsBackToOther(t *testing.T) {
	got := convertComponentType(cdx.ComponentType("platform"))
	if !got.IsOther() || got.String() != "platform" {
		t.Errorf("convertComponentType(platform) = %v, want Other(platform)", got)
	}
}

func TestExternalRefTypeMapsKnownAndUnknown(t *testing.T) {
	if got := externalRefType("vcs"); got != model.RefVCS {
		t.Errorf("externalRefType(vcs) = %v, want RefVCS", got)
	}
	if got := externalRefType("something-new"); got.String() != "something-new" {
		t.Errorf("externalRefType(something-new).String() = %q, want %q", got.String(), "something-new")
	}
}
