package server

import (
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/minepool/go-minepool/clog"
	"github.com/minepool/go-minepool/common"
	"github.com/minepool/go-minepool/core"
	"github.com/minepool/go-minepool/mining"
)

// paymentHeader carries the client's payment credential on a retried
// ticket purchase: base64-encoded JSON, forwarded untouched to the
// payment collaborator which does all cryptographic validation.
const paymentHeader = "X-Payment"

// paymentChallenge is the body of a 402 response: everything the client
// needs to construct a delegated stablecoin payment for the purchase.
type paymentChallenge struct {
	Scheme      string `json:"scheme"`
	Asset       string `json:"asset"`
	Price       string `json:"price"`
	PayTo       string `json:"payTo"`
	Description string `json:"description"`
}

// paymentCredential is the decoded client payment header. Authorization
// stays opaque at this layer.
type paymentCredential struct {
	Payer         string          `json:"payer"`
	Value         string          `json:"value"`
	Authorization json.RawMessage `json:"authorization"`
}

type issueResponse struct {
	TicketIDs []uint64 `json:"ticketIds"`
}

type claimResponse struct {
	Minted string `json:"minted"`
}

func decodePaymentHeader(hdr string) (*paymentCredential, error) {
	raw, err := base64.StdEncoding.DecodeString(hdr)
	if err != nil {
		return nil, errors.Wrap(err, "invalid payment header encoding")
	}
	var cred paymentCredential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, errors.Wrap(err, "invalid payment header payload")
	}
	if !ethcommon.IsHexAddress(cred.Payer) {
		return nil, errors.New("invalid payer address in payment header")
	}
	return &cred, nil
}

// buyTicketsHandler drives the payment-required purchase flow. A
// request without a payment header is answered with 402 and a
// challenge; a request carrying one has its credential forwarded to the
// payment collaborator before the issuance engine runs.
func buyTicketsHandler(node *core.MinepoolNode, payTo ethcommon.Address, asset string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := 1
		if cv := r.FormValue("count"); cv != "" {
			parsed, err := strconv.Atoi(cv)
			if err != nil {
				logAndRespondWithError(w, "invalid count", http.StatusBadRequest)
				return
			}
			count = parsed
		}
		price := new(big.Int).Mul(mining.TicketPrice, big.NewInt(int64(count)))

		hdr := r.Header.Get(paymentHeader)
		if hdr == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusPaymentRequired)
			json.NewEncoder(w).Encode(paymentChallenge{
				Scheme:      "exact",
				Asset:       asset,
				Price:       price.String(),
				PayTo:       payTo.Hex(),
				Description: "minepool ticket purchase",
			})
			return
		}

		cred, err := decodePaymentHeader(hdr)
		if err != nil {
			glog.Error(err)
			logAndRespondWithError(w, err.Error(), http.StatusBadRequest)
			return
		}
		payer := ethcommon.HexToAddress(cred.Payer)

		// delegated issuance: the beneficiary's ledger takes the
		// tickets, the payer only matters to the payment collaborator
		beneficiary := payer
		if bv := r.FormValue("beneficiary"); bv != "" {
			var ok bool
			beneficiary, ok = parseAddr(w, "beneficiary", bv)
			if !ok {
				return
			}
		}

		ctx := clog.AddPayer(r.Context(), payer.Hex())
		ctx = clog.AddHolder(ctx, beneficiary.Hex())

		ids, err := node.Issuer.Issue(ctx, payer, beneficiary, count, time.Now().Unix())
		if err != nil {
			clog.Errorf(ctx, "Ticket purchase failed err=%v", err)
			logAndRespondWithError(w, err.Error(), issueErrorStatus(err))
			return
		}
		respondWithJSON(w, issueResponse{TicketIDs: ids})
	})
}

// claimTicketsHandler runs an all-or-nothing claim batch for a
// beneficiary. No authorization beyond the beneficiary identity is
// enforced here; if the deployment needs one it lives in front of this
// handler.
func claimTicketsHandler(node *core.MinepoolNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		beneficiary, ok := parseAddr(w, "beneficiary", r.FormValue("beneficiary"))
		if !ok {
			return
		}
		ids, err := common.ParseTicketIDs(r.FormValue("ticketIds"))
		if err != nil {
			glog.Error(err)
			logAndRespondWithError(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx := clog.AddHolder(r.Context(), beneficiary.Hex())
		ctx = clog.AddBatchID(ctx, uuid.New().String())

		minted, err := node.Claimer.Claim(ctx, beneficiary, ids, time.Now().Unix())
		if err != nil {
			clog.Errorf(ctx, "Claim failed err=%v", err)
			logAndRespondWithError(w, err.Error(), claimErrorStatus(err))
			return
		}
		respondWithJSON(w, claimResponse{Minted: minted.String()})
	})
}

func issueErrorStatus(err error) int {
	switch errors.Cause(err) {
	case mining.ErrPaymentNotSettled:
		return http.StatusPaymentRequired
	case mining.ErrReentrancy:
		return http.StatusServiceUnavailable
	case mining.ErrZeroCount, mining.ErrHolderCapacity, mining.ErrPoolExhausted:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func claimErrorStatus(err error) int {
	switch errors.Cause(err) {
	case mining.ErrReentrancy:
		return http.StatusServiceUnavailable
	case mining.ErrUnknownTicket, mining.ErrTicketClaimed, mining.ErrClaimWindowExpired,
		mining.ErrNothingToClaim, mining.ErrPoolExhausted:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
