package market

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyunsoo-dev/tokenmart/pkg/chain"
)

// MaxOwnerCutPerMillion is the exclusive upper bound on the operator's
// proportional cut (1,000,000 ppm would be the whole price).
const MaxOwnerCutPerMillion = 1_000_000

// FeePolicy holds the accepted payment currency, the operator's proportional
// cut, and the flat publication fee. The payment currency and beneficiary are
// fixed at construction; the cut and fee are admin-mutable.
type FeePolicy struct {
	mu    sync.RWMutex
	roles *chain.Roles

	paymentToken common.Address
	beneficiary  common.Address

	ownerCutPerMillion uint64
	publicationFee     *big.Int
}

func NewFeePolicy(roles *chain.Roles, paymentToken, beneficiary common.Address, ownerCutPerMillion uint64, publicationFee *big.Int) (*FeePolicy, error) {
	if paymentToken == (common.Address{}) {
		return nil, ErrZeroPaymentToken
	}
	if beneficiary == (common.Address{}) {
		return nil, ErrZeroFeeBeneficiary
	}
	if ownerCutPerMillion >= MaxOwnerCutPerMillion {
		return nil, ErrInvalidOwnerCut
	}
	if publicationFee == nil {
		publicationFee = new(big.Int)
	}
	return &FeePolicy{
		roles:              roles,
		paymentToken:       paymentToken,
		beneficiary:        beneficiary,
		ownerCutPerMillion: ownerCutPerMillion,
		publicationFee:     new(big.Int).Set(publicationFee),
	}, nil
}

func (p *FeePolicy) PaymentToken() common.Address { return p.paymentToken }
func (p *FeePolicy) Beneficiary() common.Address  { return p.beneficiary }

func (p *FeePolicy) OwnerCutPerMillion() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ownerCutPerMillion
}

func (p *FeePolicy) PublicationFee() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(big.Int).Set(p.publicationFee)
}

// SetOwnerCutPerMillion updates the proportional cut. Admin only.
func (p *FeePolicy) SetOwnerCutPerMillion(caller common.Address, cut uint64) error {
	if err := p.roles.RequireAdmin(caller); err != nil {
		return err
	}
	if cut >= MaxOwnerCutPerMillion {
		return ErrInvalidOwnerCut
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ownerCutPerMillion = cut
	return nil
}

// SetPublicationFee updates the flat listing fee. Admin only.
func (p *FeePolicy) SetPublicationFee(caller common.Address, fee *big.Int) error {
	if err := p.roles.RequireAdmin(caller); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.publicationFee = new(big.Int).Set(fee)
	return nil
}

// CutFor returns the operator's share of price: price * cut / 1e6,
// truncating integer division.
func (p *FeePolicy) CutFor(price *big.Int) *big.Int {
	p.mu.RLock()
	cut := p.ownerCutPerMillion
	p.mu.RUnlock()

	share := new(big.Int).Mul(price, new(big.Int).SetUint64(cut))
	return share.Div(share, big.NewInt(MaxOwnerCutPerMillion))
}
