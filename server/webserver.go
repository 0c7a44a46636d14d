package server

import (
	"net/http"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"

	"github.com/minepool/go-minepool/core"
	"github.com/minepool/go-minepool/monitor"
)

// NewWebServer builds the HTTP surface of the node: the payment-gated
// ticket purchase, claims, the read-only projections and the privileged
// admin endpoints.
func NewWebServer(node *core.MinepoolNode, addr string, payTo ethcommon.Address, asset string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/tickets", buyTicketsHandler(node, payTo, asset))
	mux.Handle("/claims", mustHaveFormParams(claimTicketsHandler(node), "beneficiary", "ticketIds"))
	mux.Handle("/platform", platformHandler(node))
	mux.Handle("/holder", mustHaveFormParams(holderHandler(node), "holder"))
	mux.Handle("/setEmissionCap", mustHaveFormParams(setEmissionCapHandler(node), "caller", "cap"))
	mux.Handle("/withdraw", mustHaveFormParams(withdrawHandler(node), "caller", "to", "amount"))
	if monitor.Enabled {
		mux.Handle("/metrics", monitor.Handler())
	}
	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}

// StartWebserver blocks serving the node's HTTP surface on addr.
func StartWebserver(node *core.MinepoolNode, addr string, payTo ethcommon.Address, asset string) error {
	glog.Infof("Starting webserver on %s", addr)
	return NewWebServer(node, addr, payTo, asset).ListenAndServe()
}
