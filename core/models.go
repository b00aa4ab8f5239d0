package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Dimension names one axis of the elemental classification.
type Dimension string

const (
	DimensionFire   Dimension = "fire"
	DimensionWater  Dimension = "water"
	DimensionEarth  Dimension = "earth"
	DimensionAir    Dimension = "air"
	DimensionSpirit Dimension = "spirit"
)

// Dimensions is the fixed set of classification dimensions, in canonical order.
var Dimensions = []Dimension{
	DimensionFire,
	DimensionWater,
	DimensionEarth,
	DimensionAir,
	DimensionSpirit,
}

// IsValidDimension reports whether d is one of Dimensions.
func IsValidDimension(d Dimension) bool {
	for _, known := range Dimensions {
		if known == d {
			return true
		}
	}
	return false
}

// NeutralWeight is the per-dimension weight of the neutral classification vector.
func NeutralWeight() float64 {
	return 1.0 / float64(len(Dimensions))
}

// ClassificationWeights holds a non-negative weight per dimension.
// Weights need not sum to 1. Missing dimensions read as 0.
type ClassificationWeights map[Dimension]float64

// Get returns the weight for d, or 0 if unset.
func (w ClassificationWeights) Get(d Dimension) float64 {
	if w == nil {
		return 0
	}
	return w[d]
}

// Dominant returns the dimension with the highest weight and that weight.
// Ties resolve to the earlier dimension in Dimensions. An empty vector
// returns ("", 0).
func (w ClassificationWeights) Dominant() (Dimension, float64) {
	var best Dimension
	var bestWeight float64
	for _, d := range Dimensions {
		if v := w.Get(d); v > bestWeight {
			best = d
			bestWeight = v
		}
	}
	return best, bestWeight
}

// NeutralWeights returns a vector with NeutralWeight on every dimension.
func NeutralWeights() ClassificationWeights {
	w := make(ClassificationWeights, len(Dimensions))
	for _, d := range Dimensions {
		w[d] = NeutralWeight()
	}
	return w
}

// AnalysisResult is the structured semantic summary of a document.
type AnalysisResult struct {
	Summary            string
	Topics             []string
	Tone               string
	Weights            ClassificationWeights
	DetectedFrames     []string // Frames of reference (traditions, disciplines) named in the text
	ConceptsIntroduced []string
	ConceptsReferenced []string
	PracticesDescribed []string
	Fallback           bool // True when produced by FallbackAnalysis instead of the analyzer
}

// FallbackAnalysis returns the result used when the analyzer fails.
// It has no concepts, practices or frames and a neutral weight vector.
func FallbackAnalysis() *AnalysisResult {
	return &AnalysisResult{
		Tone:               "neutral",
		Topics:             []string{},
		Weights:            NeutralWeights(),
		DetectedFrames:     []string{},
		ConceptsIntroduced: []string{},
		ConceptsReferenced: []string{},
		PracticesDescribed: []string{},
		Fallback:           true,
	}
}

// SourceKind describes where a submitted document came from.
type SourceKind string

const (
	SourceUpload SourceKind = "upload"
	SourcePaste  SourceKind = "paste"
	SourceImport SourceKind = "import"
	SourceCLI    SourceKind = "cli"
)

// IngestionJob is one submitted document awaiting processing.
type IngestionJob struct {
	Id            string                 `json:"id"`
	OwnerID       string                 `json:"ownerId"`
	RawContentRef string                 `json:"rawContentRef"`
	Tags          []string               `json:"tags"`
	Attribution   ContributorAttribution `json:"attribution"`
	Source        SourceKind             `json:"source"`
	SubmittedAt   time.Time              `json:"submittedAt"`
}

// Document is a persisted, analyzed unit of content.
// Documents are never mutated after they are saved.
type Document struct {
	Id          ID
	OwnerID     string
	Content     string
	Vector      []float32
	Analysis    *AnalysisResult
	Attribution ContributorAttribution // Redacted according to its privacy level
	Tags        []string
	Source      SourceKind
	Resonances  []DocumentResonance
	Bridges     []ConceptBridge
	CreatedAt   time.Time
}

// RelationKind classifies a resonance between two documents.
type RelationKind string

const (
	RelationParallel          RelationKind = "parallel"
	RelationComplementary     RelationKind = "complementary"
	RelationExpansion         RelationKind = "expansion"
	RelationPracticeReference RelationKind = "practice-reference"
)

// DocumentResonance is a directed similarity relationship from a new document to a prior one.
type DocumentResonance struct {
	TargetID     ID
	Score        float32 // Cosine similarity in [0,1]
	SharedThemes []string
	Kind         RelationKind
}

// FrameworkTerm is one framework's name for a bridged concept.
type FrameworkTerm struct {
	Framework        string
	Terminology      string
	SourceDocumentID ID
	Contributor      *Contributor // nil for private contributions
}

// ConceptBridge proposes that differently-named ideas play the same structural role.
type ConceptBridge struct {
	Id            ID
	Concept       string
	CanonicalTag  string
	Parallels     []FrameworkTerm
	SynthesisNote string
}

// LibraryBalance is an owner's running mean of classification weights.
type LibraryBalance struct {
	OwnerID       string
	Means         ClassificationWeights
	DocumentCount int
	UpdatedAt     time.Time
}

// NodeKind separates concept nodes from practice nodes.
type NodeKind string

const (
	NodeKindConcept  NodeKind = "concept"
	NodeKindPractice NodeKind = "practice"
)

// GraphNode is a named concept or practice appearing across documents.
type GraphNode struct {
	Id           ID
	Kind         NodeKind
	Name         string
	IntroducedBy ID            // Document that most recently (or first, per policy) introduced it
	Contributor  *Contributor  // nil when the introducing contribution is private
	Tag          Dimension     // Dominant classification of the introducing document
	Contributors []Contributor // Populated by the multi-attribution policy only
	UpdatedAt    time.Time
}

// Tuple returns a string representation of the node as "(Kind,Name)".
// This is used for generating deterministic IDs.
func (n *GraphNode) Tuple() string {
	return NodeTuple(n.Kind, n.Name)
}

// NodeTuple returns the "(Kind,Name)" tuple for a normalized node name.
func NodeTuple(kind NodeKind, name string) string {
	return "(" + string(kind) + "," + name + ")"
}

// EdgeKindReferences is the only edge kind produced by ingestion.
const EdgeKindReferences = "references"

// GraphEdge is a reference from a document to a concept. Edges are append-only.
type GraphEdge struct {
	Id               ID
	SourceDocumentID ID
	TargetConcept    string
	Kind             string
	CreatedAt        time.Time
}

// NormalizeName trims, lower-cases and collapses inner whitespace of a node name.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
