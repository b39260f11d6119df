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

package spdx

import (
	"testing"

	"github.com/spdx/tools-golang/spdx/v2/common"
	"github.com/spdx/tools-golang/spdx/v2/v2_3"

	"github.com/sbomlens/sbomlens/model"
	"github.com/sbomlens/sbomlens/sbomformat"
)

func TestDetectJSONCertainOnRecognizedVersion(t *testing.T) {
	p := New()
	doc := []byte(`{"spdxVersion":"SPDX-2.3","SPDXID":"SPDXRef-DOCUMENT"}`)
	d := p.Detect(doc)
	if d.Confidence != sbomformat.ConfidenceCertain {
		t.Errorf("Confidence = %v, want Certain", d.Confidence)
	}
	if d.Variant != "JSON" || d.Version != "2.3" {
		t.Errorf("Variant/Version = %q/%q, want JSON/2.3", d.Variant, d.Version)
	}
}

func TestDetectTagValueCertainOnRecognizedVersion(t *testing.T) {
	p := New()
	doc := []byte("SPDXVersion: SPDX-2.2\nDataLicense: CC0-1.0\nSPDXID: SPDXRef-DOCUMENT\n")
	d := p.Detect(doc)
	if d.Confidence != sbomformat.ConfidenceCertain {
		t.Errorf("Confidence = %v, want Certain", d.Confidence)
	}
	if d.Variant != "tag-value" || d.Version != "2.2" {
		t.Errorf("Variant/Version = %q/%q, want tag-value/2.2", d.Variant, d.Version)
	}
}

func TestDetectNoneOnUnrelatedDocument(t *testing.T) {
	p := New()
	d := p.Detect([]byte(`{"bomFormat":"CycloneDX"}`))
	if d.Confidence != sbomformat.ConfidenceNone {
		t.Errorf("Confidence = %v, want None", d.Confidence)
	}
}

func TestValidRejectsNoAssertionAndNone(t *testing.T) {
	cases := map[string]bool{
		"MIT":          true,
		"NOASSERTION":  false,
		"NONE":         false,
		"":             false,
	}
	for in, want := range cases {
		if got := valid(in); got != want {
			t.Errorf("valid(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCreatorKindMapsKnownValues(t *testing.T) {
	cases := map[string]model.CreatorKind{
		"Tool":         model.CreatorTool,
		"Organization": model.CreatorOrganization,
		"Person":       model.CreatorPerson,
		"Something":    model.CreatorUnknown,
	}
	for in, want := range cases {
		if got := creatorKind(in); got != want {
			t.Errorf("creatorKind(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEcosystemFromPurlMapsKnownTypes(t *testing.T) {
	cases := map[string]model.Ecosystem{
		"pkg:npm/lodash@4.17.21":   model.EcosystemNpm,
		"pkg:pypi/requests@2.25.0": model.EcosystemPyPI,
		"pkg:deb/debian/bash@5.0":  model.EcosystemDebian,
		"not-a-purl":               model.Ecosystem{},
	}
	for in, want := range cases {
		got := ecosystemFromPurl(in)
		if !got.Equal(want) {
			t.Errorf("ecosystemFromPurl(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConvertPackageBuildsComponentFromPurlAndLicense(t *testing.T) {
	pkg := &v2_3.Package{
		PackageName:              "requests",
		PackageVersion:           "2.25.0",
		PackageSPDXIdentifier:    common.ElementID("Package-requests"),
		PackageLicenseDeclared:   "Apache-2.0",
		PackageLicenseConcluded:  "NOASSERTION",
		PackageExternalReferences: []*v2_3.PackageExternalReference{
			{Category: "PACKAGE-MANAGER", RefType: "purl", Locator: "pkg:pypi/requests@2.25.0"},
		},
	}

	c := convertPackage(pkg)

	if c.Name != "requests" || c.Version != "2.25.0" {
		t.Fatalf("unexpected component: %+v", c)
	}
	if !c.Ecosystem.Equal(model.EcosystemPyPI) {
		t.Errorf("Ecosystem = %v, want PyPI", c.Ecosystem)
	}
	if len(c.Licenses.Declared) != 1 || c.Licenses.Declared[0].Text != "Apache-2.0" {
		t.Errorf("Licenses.Declared = %+v, want [Apache-2.0]", c.Licenses.Declared)
	}
	if c.Licenses.Concluded != nil {
		t.Errorf("Licenses.Concluded should be nil for NOASSERTION, got %+v", c.Licenses.Concluded)
	}
	if c.CanonicalID == "" {
		t.Error("CanonicalID should be populated")
	}
}

func TestConvertDocumentSetsPrimaryFromDescribes(t *testing.T) {
	docID := common.ElementID("DOCUMENT")
	pkgID := common.ElementID("Package-app")
	doc := &v2_3.Document{
		SPDXVersion:           "SPDX-2.3",
		DocumentName:          "example",
		SPDXIdentifier:        docID,
		CreationInfo:          &v2_3.CreationInfo{Created: "2024-01-01T00:00:00Z"},
		Packages: []*v2_3.Package{
			{PackageName: "app", PackageVersion: "1.0.0", PackageSPDXIdentifier: pkgID},
		},
		Relationships: []*v2_3.Relationship{
			{
				RefA:         common.DocElementID{ElementRefID: docID},
				RefB:         common.DocElementID{ElementRefID: pkgID},
				Relationship: "DESCRIBES",
			},
		},
	}

	sbom := convertDocument(doc)

	if sbom.ComponentCount() != 1 {
		t.Fatalf("ComponentCount() = %d, want 1", sbom.ComponentCount())
	}
	comps := sbom.Components()
	if comps[0].Name != "app" {
		t.Errorf("component name = %q, want app", comps[0].Name)
	}
	if sbom.PrimaryComponentID != comps[0].CanonicalID {
		t.Errorf("PrimaryComponentID = %q, want %q", sbom.PrimaryComponentID, comps[0].CanonicalID)
	}
}
