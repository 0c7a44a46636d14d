package mining

import "github.com/pkg/errors"

var (
	// ErrZeroCount is returned when an issuance requests fewer than one ticket
	ErrZeroCount = errors.New("ticket count must be at least 1")

	// ErrPoolExhausted is returned when the emission pool cannot cover a
	// call: already fully minted at issuance time, or a claim batch whose
	// payout would push cumulative minted output past the pool ceiling
	ErrPoolExhausted = errors.New("emission pool exhausted")

	// ErrHolderCapacity is returned when an issuance would leave the
	// beneficiary with more active tickets than MaxTicketsPerHolder
	ErrHolderCapacity = errors.New("holder ticket capacity exceeded")

	// ErrPaymentNotSettled is returned when the payment collaborator does
	// not attest that the ticket fee has been received
	ErrPaymentNotSettled = errors.New("payment not settled")

	// ErrUnknownTicket is returned when a claim batch names a ticket id
	// that does not exist in the beneficiary's ledger
	ErrUnknownTicket = errors.New("unknown ticket")

	// ErrTicketClaimed is returned when a claim batch names a ticket that
	// was already claimed
	ErrTicketClaimed = errors.New("ticket already claimed")

	// ErrClaimWindowExpired is returned when a claim batch names a ticket
	// outside its [purchase, claim deadline] window
	ErrClaimWindowExpired = errors.New("claim window expired")

	// ErrNothingToClaim is returned when a claim batch computes a zero
	// total payout: an empty id list, or every ticket claimed at its
	// purchase instant
	ErrNothingToClaim = errors.New("nothing to claim")

	// ErrReentrancy is returned when a mutating call arrives while
	// another mutating call is still in flight, including a re-entrant
	// callback from the external mint or transfer primitive
	ErrReentrancy = errors.New("re-entrant or overlapping mutating call")

	// ErrNotOwner is returned when a privileged operation is attempted by
	// anyone but the ledger owner
	ErrNotOwner = errors.New("caller is not the ledger owner")

	// ErrCapBelowMinted is returned when the emission cap would be set
	// below the output already minted
	ErrCapBelowMinted = errors.New("emission cap below total minted")

	// ErrCapAboveHardLimit is returned when the emission cap would be set
	// above the hard limit
	ErrCapAboveHardLimit = errors.New("emission cap above hard limit")
)
