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

// Package spdx parses SPDX 2.2-2.3 documents (JSON, tag-value, and
// RDF/XML) into the shared normalized model. All three variants decode
// through tools-golang into the same v2_3.Document shape, so one
// conversion routine below serves all three.
package spdx

import (
	"bytes"
	"io"
	"strings"
	"time"

	spdxjson "github.com/spdx/tools-golang/json"
	"github.com/spdx/tools-golang/rdf"
	"github.com/spdx/tools-golang/spdx/v2/common"
	"github.com/spdx/tools-golang/spdx/v2/v2_3"
	"github.com/spdx/tools-golang/tagvalue"

	"github.com/sbomlens/sbomlens/idhash"
	"github.com/sbomlens/sbomlens/license"
	"github.com/sbomlens/sbomlens/model"
	"github.com/sbomlens/sbomlens/sbomerr"
	"github.com/sbomlens/sbomlens/sbomformat"
)

// Parser implements sbomformat.Parser for SPDX documents.
type Parser struct{}

// New returns an SPDX parser.
func New() *Parser { return &Parser{} }

// FormatName implements sbomformat.Parser.
func (*Parser) FormatName() string { return "SPDX" }

// SupportedVersions implements sbomformat.Parser.
func (*Parser) SupportedVersions() []string { return []string{"2.2", "2.3"} }

// variant is the closed set of SPDX serializations this parser recognizes.
type variant int

const (
	variantUnknown variant = iota
	variantJSON
	variantTagValue
	variantRDF
)

// Detect implements sbomformat.Parser.
func (*Parser) Detect(text []byte) sbomformat.FormatDetection {
	trimmed := bytes.TrimSpace(text)
	if len(trimmed) == 0 {
		return sbomformat.FormatDetection{Parser: "SPDX", Confidence: sbomformat.ConfidenceNone}
	}

	switch sniff(trimmed) {
	case variantJSON:
		version := jsonSpdxVersion(trimmed)
		if supportedVersion(version) {
			return sbomformat.FormatDetection{Parser: "SPDX", Confidence: sbomformat.ConfidenceCertain, Variant: "JSON", Version: version}
		}
		return sbomformat.FormatDetection{Parser: "SPDX", Confidence: sbomformat.ConfidenceMedium, Variant: "JSON", Version: version}
	case variantTagValue:
		version := tagValueVersion(trimmed)
		if supportedVersion(version) {
			return sbomformat.FormatDetection{Parser: "SPDX", Confidence: sbomformat.ConfidenceCertain, Variant: "tag-value", Version: version}
		}
		return sbomformat.FormatDetection{Parser: "SPDX", Confidence: sbomformat.ConfidenceHigh, Variant: "tag-value", Version: version}
	case variantRDF:
		return sbomformat.FormatDetection{Parser: "SPDX", Confidence: sbomformat.ConfidenceHigh, Variant: "RDF"}
	default:
		return sbomformat.FormatDetection{Parser: "SPDX", Confidence: sbomformat.ConfidenceNone}
	}
}

func sniff(trimmed []byte) variant {
	switch {
	case trimmed[0] == '{' && bytes.Contains(trimmed, []byte(`"spdxVersion"`)):
		return variantJSON
	case bytes.Contains(trimmed[:min(len(trimmed), 64)], []byte("SPDXVersion:")):
		return variantTagValue
	case trimmed[0] == '<' && (bytes.Contains(trimmed, []byte("rdf:RDF")) || bytes.Contains(trimmed, []byte("spdx#"))):
		return variantRDF
	default:
		return variantUnknown
	}
}

func supportedVersion(v string) bool {
	return v == "2.2" || v == "2.3"
}

func jsonSpdxVersion(text []byte) string {
	const key = `"spdxVersion"`
	i := bytes.Index(text, []byte(key))
	if i < 0 {
		return ""
	}
	rest := text[i+len(key):]
	start := bytes.IndexByte(rest, '"')
	if start < 0 {
		return ""
	}
	rest = rest[start+1:]
	end := bytes.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return strings.TrimPrefix(string(rest[:end]), "SPDX-")
}

func tagValueVersion(text []byte) string {
	lines := bytes.SplitN(text, []byte("\n"), 2)
	first := strings.TrimSpace(string(lines[0]))
	if !strings.HasPrefix(first, "SPDXVersion:") {
		return ""
	}
	return strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(first, "SPDXVersion:")), "SPDX-")
}

// ParseString implements sbomformat.Parser.
func (p *Parser) ParseString(text []byte) (*model.NormalizedSbom, error) {
	return p.parse(bytes.NewReader(text), sniff(bytes.TrimSpace(text)))
}

// ParseReader implements sbomformat.Parser. Tag-value and RDF both require
// the whole document to resolve cross-references, so r is read fully before
// the variant is sniffed and decoded.
func (p *Parser) ParseReader(r io.Reader) (*model.NormalizedSbom, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, sbomerr.IO("reading SPDX input", "", err)
	}
	return p.ParseString(data)
}

func (p *Parser) parse(r io.Reader, v variant) (*model.NormalizedSbom, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, sbomerr.IO("reading SPDX input", "", err)
	}

	var doc *v2_3.Document
	var decodeErr error
	switch v {
	case variantJSON:
		doc, decodeErr = spdxjson.Load2_3(bytes.NewReader(data))
		if decodeErr != nil {
			return nil, sbomerr.Parse(sbomerr.ParseInvalidJSON, "decoding SPDX JSON document", decodeErr)
		}
	case variantTagValue:
		doc, decodeErr = tagvalue.Read(bytes.NewReader(data))
		if decodeErr != nil {
			return nil, sbomerr.Parse(sbomerr.ParseDialectSpecific, "decoding SPDX tag-value document", decodeErr)
		}
	case variantRDF:
		doc, decodeErr = rdf.Read(bytes.NewReader(data))
		if decodeErr != nil {
			return nil, sbomerr.Parse(sbomerr.ParseDialectSpecific, "decoding SPDX RDF document", decodeErr)
		}
	default:
		return nil, sbomerr.Parse(sbomerr.ParseUnknownFormat, "unrecognized SPDX serialization", nil)
	}

	return convertDocument(doc), nil
}

func convertDocument(doc *v2_3.Document) *model.NormalizedSbom {
	meta := model.DocumentMeta{
		Format:        "SPDX",
		FormatVersion: strings.TrimPrefix(doc.SPDXVersion, "SPDX-"),
		Name:          doc.DocumentName,
		SerialNumber:  doc.DocumentNamespace,
	}
	if doc.CreationInfo != nil {
		if t, err := time.Parse("2006-01-02T15:04:05Z", doc.CreationInfo.Created); err == nil {
			meta.CreatedAt = &t
		}
		for _, c := range doc.CreationInfo.Creators {
			meta.Creators = append(meta.Creators, model.Creator{Kind: creatorKind(c.CreatorType), Name: c.Creator})
		}
	}

	sbom := model.New(meta)

	idByLocalID := make(map[common.ElementID]model.CanonicalId)
	for _, pkg := range doc.Packages {
		c := convertPackage(pkg)
		sbom.AddComponent(c, idhash.MoreInformative)
		idByLocalID[pkg.PackageSPDXIdentifier] = c.CanonicalID
	}

	var primaryID model.CanonicalId
	for _, rel := range doc.Relationships {
		if rel.Relationship == "DESCRIBES" && primaryID == "" {
			if id, ok := idByLocalID[rel.RefB.ElementRefID]; ok {
				primaryID = id
			}
			continue
		}
		from, fromOK := idByLocalID[rel.RefA.ElementRefID]
		to, toOK := idByLocalID[rel.RefB.ElementRefID]
		if !fromOK || !toOK {
			continue
		}
		sbom.AddEdge(model.DependencyEdge{From: from, To: to, Kind: relationshipKind(rel.Relationship)})
	}

	if primaryID != "" {
		sbom.SetPrimaryComponent(primaryID)
	}

	return sbom
}

func creatorKind(raw string) model.CreatorKind {
	switch raw {
	case "Tool":
		return model.CreatorTool
	case "Organization":
		return model.CreatorOrganization
	case "Person":
		return model.CreatorPerson
	default:
		return model.CreatorUnknown
	}
}

func relationshipKind(raw string) model.EdgeKind {
	switch raw {
	case "DEPENDS_ON", "DEPENDENCY_OF":
		return model.EdgeDependsOn
	case "CONTAINS":
		return model.EdgeContains
	case "DESCRIBES":
		return model.EdgeDescribes
	default:
		return model.EdgeOther
	}
}

func convertPackage(pkg *v2_3.Package) *model.Component {
	out := &model.Component{
		Name:    pkg.PackageName,
		Version: pkg.PackageVersion,
	}

	for _, ref := range pkg.PackageExternalReferences {
		if ref.RefType == "purl" {
			out.Identifiers.Purl = ref.Locator
			continue
		}
		if strings.EqualFold(ref.RefType, "cpe23Type") {
			out.Identifiers.CPEs = append(out.Identifiers.CPEs, ref.Locator)
		}
	}
	out.Ecosystem = ecosystemFromPurl(out.Identifiers.Purl)

	if valid(pkg.PackageLicenseDeclared) {
		out.Licenses.Declared = append(out.Licenses.Declared, license.Parse(pkg.PackageLicenseDeclared))
	}
	if valid(pkg.PackageLicenseConcluded) {
		expr := license.Parse(pkg.PackageLicenseConcluded)
		out.Licenses.Concluded = &expr
	}

	if pkg.PackageSupplier != nil && valid(pkg.PackageSupplier.Supplier) {
		out.Supplier = &model.Organization{Name: pkg.PackageSupplier.Supplier}
	}

	for _, ck := range pkg.PackageChecksums {
		out.Hashes = append(out.Hashes, model.Hash{Algorithm: string(ck.Algorithm), HexDigest: ck.Value})
	}

	for _, ref := range pkg.PackageExternalReferences {
		if ref.RefType == "purl" {
			continue
		}
		out.ExternalRefs = append(out.ExternalRefs, model.ExternalRef{
			Type:    model.OtherRefType(strings.ToLower(ref.RefType)),
			URL:     ref.Locator,
			Comment: ref.ExternalRefComment,
		})
	}

	localID := string(pkg.PackageSPDXIdentifier)
	out.CanonicalID = idhash.ComponentID(out.Name, out.Version, "", out.Ecosystem, out.Identifiers, localID)
	return out
}

// valid reports whether an SPDX string field carries real information,
// excluding the NOASSERTION/NONE/empty sentinels.
func valid(s string) bool {
	return s != "" && s != "NOASSERTION" && s != "NONE"
}

func ecosystemFromPurl(purl string) model.Ecosystem {
	const prefix = "pkg:"
	if !strings.HasPrefix(purl, prefix) {
		return model.Ecosystem{}
	}
	rest := purl[len(prefix):]
	end := strings.IndexByte(rest, '/')
	if end < 0 {
		return model.Ecosystem{}
	}
	switch strings.ToLower(rest[:end]) {
	case "npm":
		return model.EcosystemNpm
	case "pypi":
		return model.EcosystemPyPI
	case "cargo":
		return model.EcosystemCargo
	case "maven":
		return model.EcosystemMaven
	case "golang":
		return model.EcosystemGo
	case "nuget":
		return model.EcosystemNuGet
	case "gem":
		return model.EcosystemRubyGems
	case "deb":
		return model.EcosystemDebian
	case "rpm":
		return model.EcosystemRPM
	case "apk":
		return model.EcosystemAlpine
	default:
		return model.OtherEcosystem(rest[:end])
	}
}

