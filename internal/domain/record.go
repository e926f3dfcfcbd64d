package domain

import "time"

// NoiseCluster is the label a clusterer assigns to records it could not place in any group.
const NoiseCluster = -1

// Stage states which derived columns are populated on every record of a corpus.
type Stage string

const (
	StageRaw        Stage = "raw"
	StageNormalized Stage = "normalized"
	StageClustered  Stage = "clustered"
)

// Record is a single input document, typically a research abstract.
type Record struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Abstract        string            `json:"abstract"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CleanedAbstract string            `json:"cleaned_abstract,omitempty"`
	Cluster         int               `json:"cluster"`
}

// Corpus is the ordered batch of records under analysis in one run.
// Stage is corpus-wide: CleanedAbstract is meaningful from StageNormalized on,
// Cluster only at StageClustered.
type Corpus struct {
	Stage   Stage    `json:"stage"`
	Records []Record `json:"records"`
}

// NewCorpus returns a raw corpus over the given records.
func NewCorpus(records []Record) Corpus {
	return Corpus{Stage: StageRaw, Records: records}
}

// Len returns the number of records.
func (c Corpus) Len() int { return len(c.Records) }

// Clone returns a deep copy so pipeline stages never write through a shared slice.
func (c Corpus) Clone() Corpus {
	out := Corpus{Stage: c.Stage, Records: make([]Record, len(c.Records))}
	for i, r := range c.Records {
		if r.Metadata != nil {
			md := make(map[string]string, len(r.Metadata))
			for k, v := range r.Metadata {
				md[k] = v
			}
			r.Metadata = md
		}
		out.Records[i] = r
	}
	return out
}

// Raw strips every derived column and resets the stage.
func (c Corpus) Raw() Corpus {
	out := c.Clone()
	out.Stage = StageRaw
	for i := range out.Records {
		out.Records[i].CleanedAbstract = ""
		out.Records[i].Cluster = 0
	}
	return out
}

// Clustered reports whether every record carries a cluster label.
func (c Corpus) Clustered() bool { return c.Stage == StageClustered }

// DomainInsight summarises one non-noise cluster.
type DomainInsight struct {
	ClusterID           int      `json:"cluster_id"`
	Name                string   `json:"name"`
	Size                int      `json:"size"`
	DensityScore        float64  `json:"density_score"`
	IsGap               bool     `json:"is_gap"`
	RepresentativeTerms []string `json:"representative_terms"`
}

// Analysis is the output of one pipeline run.
type Analysis struct {
	RunID          string          `json:"run_id"`
	Domains        []DomainInsight `json:"domains"`
	TotalProcessed int             `json:"total_processed"`
	NoiseCount     int             `json:"noise_count"`
	GapThreshold   int             `json:"gap_threshold"`
	Policy         string          `json:"policy"`
	StartedAt      time.Time       `json:"started_at"`
	Duration       time.Duration   `json:"duration"`
}

// Gaps returns the insights flagged as gaps, in emission order.
func (a *Analysis) Gaps() []DomainInsight {
	var out []DomainInsight
	for _, d := range a.Domains {
		if d.IsGap {
			out = append(out, d)
		}
	}
	return out
}

// ClusterGroup is one cluster's members as returned by grouped reads.
type ClusterGroup struct {
	Cluster int      `json:"cluster"`
	Records []Record `json:"records"`
}
