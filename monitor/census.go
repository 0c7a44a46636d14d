package monitor

import (
	"context"
	"math/big"
	"net/http"
	"runtime"
	"strconv"
	"sync"

	"github.com/golang/glog"

	"contrib.go.opencensus.io/exporter/prometheus"
	rprom "github.com/prometheus/client_golang/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// Enabled true if metrics was enabled in command line
var Enabled bool

// Exporter Prometheus exporter that handles `/metrics` endpoint
var Exporter *prometheus.Exporter

var census censusMetricsCounter

type censusMetricsCounter struct {
	nodeID     string
	ctx        context.Context
	kNodeID    tag.Key
	kStage     tag.Key
	kErrorCode tag.Key

	mTicketsIssued  *stats.Int64Measure
	mTicketsClaimed *stats.Int64Measure
	mValueMinted    *stats.Int64Measure
	mCurrentStage   *stats.Int64Measure
	mRemainingPool  *stats.Int64Measure
	mIssueError     *stats.Int64Measure
	mClaimError     *stats.Int64Measure

	lock sync.Mutex
}

// InitCensus registers the ledger metrics views and starts the
// prometheus exporter. Call once at startup, before Enabled is set.
func InitCensus(nodeID, version string) {
	census = censusMetricsCounter{
		nodeID: nodeID,
	}
	var err error
	census.kNodeID, _ = tag.NewKey("node_id")
	census.kStage, _ = tag.NewKey("stage")
	census.kErrorCode, _ = tag.NewKey("error_code")
	census.ctx, err = tag.New(context.Background(), tag.Insert(census.kNodeID, nodeID))
	if err != nil {
		glog.Fatal("Error creating context", err)
	}
	census.mTicketsIssued = stats.Int64("tickets_issued_total", "Tickets issued", "tot")
	census.mTicketsClaimed = stats.Int64("tickets_claimed_total", "Tickets claimed", "tot")
	census.mValueMinted = stats.Int64("value_minted_total", "Output minted via claims", "tot")
	census.mCurrentStage = stats.Int64("emission_stage", "Current halving stage", "stage")
	census.mRemainingPool = stats.Int64("remaining_pool", "Unminted output left in the emission pool", "tot")
	census.mIssueError = stats.Int64("issue_errors_total", "Rejected issuance calls", "tot")
	census.mClaimError = stats.Int64("claim_errors_total", "Rejected claim calls", "tot")

	glog.Infof("Compiler: %s Arch %s OS %s Go version %s", runtime.Compiler, runtime.GOARCH, runtime.GOOS, runtime.Version())
	glog.Infof("Minepool version: %s", version)
	glog.Infof("Node ID %s", nodeID)

	baseTags := []tag.Key{census.kNodeID}
	views := []*view.View{
		{
			Name:        "tickets_issued_total",
			Measure:     census.mTicketsIssued,
			Description: "Tickets issued",
			TagKeys:     append([]tag.Key{census.kStage}, baseTags...),
			Aggregation: view.Sum(),
		},
		{
			Name:        "tickets_claimed_total",
			Measure:     census.mTicketsClaimed,
			Description: "Tickets claimed",
			TagKeys:     baseTags,
			Aggregation: view.Sum(),
		},
		{
			Name:        "value_minted_total",
			Measure:     census.mValueMinted,
			Description: "Output minted via claims",
			TagKeys:     baseTags,
			Aggregation: view.Sum(),
		},
		{
			Name:        "emission_stage",
			Measure:     census.mCurrentStage,
			Description: "Current halving stage",
			TagKeys:     baseTags,
			Aggregation: view.LastValue(),
		},
		{
			Name:        "remaining_pool",
			Measure:     census.mRemainingPool,
			Description: "Unminted output left in the emission pool",
			TagKeys:     baseTags,
			Aggregation: view.LastValue(),
		},
		{
			Name:        "issue_errors_total",
			Measure:     census.mIssueError,
			Description: "Rejected issuance calls",
			TagKeys:     append([]tag.Key{census.kErrorCode}, baseTags...),
			Aggregation: view.Sum(),
		},
		{
			Name:        "claim_errors_total",
			Measure:     census.mClaimError,
			Description: "Rejected claim calls",
			TagKeys:     append([]tag.Key{census.kErrorCode}, baseTags...),
			Aggregation: view.Sum(),
		},
	}
	if err := view.Register(views...); err != nil {
		glog.Fatalf("Failed to register views: %v", err)
	}

	registry := rprom.NewRegistry()
	registry.MustRegister(rprom.NewProcessCollector(rprom.ProcessCollectorOpts{}))
	registry.MustRegister(rprom.NewGoCollector())
	pe, err := prometheus.NewExporter(prometheus.Options{
		Namespace: "minepool",
		Registry:  registry,
	})
	if err != nil {
		glog.Fatalf("Failed to create the Prometheus stats exporter: %v", err)
	}
	view.RegisterExporter(pe)
	Exporter = pe
}

// Handler returns the HTTP handler serving the `/metrics` endpoint.
func Handler() http.Handler {
	return Exporter
}

// TicketsIssued records an issued batch against the stage its reward
// was locked from.
func TicketsIssued(count int, stage int) {
	census.lock.Lock()
	defer census.lock.Unlock()
	ctx, err := tag.New(census.ctx, tag.Insert(census.kStage, stageTag(stage)))
	if err != nil {
		glog.Error("Error creating context", err)
		return
	}
	stats.Record(ctx, census.mTicketsIssued.M(int64(count)))
}

// TicketsClaimed records a settled claim batch and the output it minted.
func TicketsClaimed(count int, minted *big.Int) {
	census.lock.Lock()
	defer census.lock.Unlock()
	stats.Record(census.ctx, census.mTicketsClaimed.M(int64(count)))
	if minted.IsInt64() {
		stats.Record(census.ctx, census.mValueMinted.M(minted.Int64()))
	}
}

// EmissionProgress records the stage and remaining pool after a claim.
func EmissionProgress(stage int, remaining *big.Int) {
	census.lock.Lock()
	defer census.lock.Unlock()
	stats.Record(census.ctx, census.mCurrentStage.M(int64(stage)))
	if remaining.IsInt64() {
		stats.Record(census.ctx, census.mRemainingPool.M(remaining.Int64()))
	}
}

// IssueError records a rejected issuance call by error code.
func IssueError(code string) {
	census.lock.Lock()
	defer census.lock.Unlock()
	ctx, err := tag.New(census.ctx, tag.Insert(census.kErrorCode, code))
	if err != nil {
		glog.Error("Error creating context", err)
		return
	}
	stats.Record(ctx, census.mIssueError.M(1))
}

// ClaimError records a rejected claim call by error code.
func ClaimError(code string) {
	census.lock.Lock()
	defer census.lock.Unlock()
	ctx, err := tag.New(census.ctx, tag.Insert(census.kErrorCode, code))
	if err != nil {
		glog.Error("Error creating context", err)
		return
	}
	stats.Record(ctx, census.mClaimError.M(1))
}

func stageTag(stage int) string {
	return strconv.Itoa(stage)
}
