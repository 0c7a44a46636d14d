package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"

	"github.com/minepool/go-minepool/common"
	"github.com/minepool/go-minepool/core"
)

func logAndRespondWithError(w http.ResponseWriter, errMsg string, code int) {
	glog.Error(errMsg)
	http.Error(w, errMsg, code)
}

func respondWithJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Error(err)
	}
}

func mustHaveFormParams(h http.Handler, params ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			glog.Error(err)
			logAndRespondWithError(w, "parse form error", http.StatusInternalServerError)
			return
		}

		for _, param := range params {
			if r.FormValue(param) == "" {
				logAndRespondWithError(w, fmt.Sprintf("missing form param: %s", param), http.StatusBadRequest)
				return
			}
		}

		h.ServeHTTP(w, r)
	})
}

func parseAddr(w http.ResponseWriter, name, value string) (ethcommon.Address, bool) {
	if !ethcommon.IsHexAddress(value) {
		logAndRespondWithError(w, fmt.Sprintf("invalid %s address", name), http.StatusBadRequest)
		return ethcommon.Address{}, false
	}
	return ethcommon.HexToAddress(value), true
}

func platformHandler(node *core.MinepoolNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, node.Ledger.PlatformStatus(time.Now().Unix()))
	})
}

func holderHandler(node *core.MinepoolNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		holder, ok := parseAddr(w, "holder", r.FormValue("holder"))
		if !ok {
			return
		}
		respondWithJSON(w, node.Ledger.HolderStatus(holder, time.Now().Unix()))
	})
}

func setEmissionCapHandler(node *core.MinepoolNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := parseAddr(w, "caller", r.FormValue("caller"))
		if !ok {
			return
		}
		cap, err := common.ParseBigInt(r.FormValue("cap"))
		if err != nil {
			glog.Error(err)
			logAndRespondWithError(w, "invalid cap", http.StatusBadRequest)
			return
		}
		if err := node.Ledger.SetEmissionCap(caller, cap); err != nil {
			glog.Error(err)
			logAndRespondWithError(w, "could not set emission cap", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("setEmissionCap success"))
	})
}

func withdrawHandler(node *core.MinepoolNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := parseAddr(w, "caller", r.FormValue("caller"))
		if !ok {
			return
		}
		if caller != node.OwnerAddr {
			logAndRespondWithError(w, "caller is not the operator", http.StatusForbidden)
			return
		}
		to, ok := parseAddr(w, "to", r.FormValue("to"))
		if !ok {
			return
		}
		amount, err := common.ParseBigInt(r.FormValue("amount"))
		if err != nil {
			glog.Error(err)
			logAndRespondWithError(w, "invalid amount", http.StatusBadRequest)
			return
		}
		if err := node.Broker.Withdraw(to, amount); err != nil {
			glog.Error(err)
			logAndRespondWithError(w, "could not execute withdraw", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("withdraw success"))
	})
}
