package extrinsic

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/PolymeshAssociation/polymesh-api-sub001/metadata"
	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
	"github.com/PolymeshAssociation/polymesh-api-sub001/scale"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
)

// Extensions holds the values the runtime's signed extensions need. Build
// lays them out in the order the metadata lists the extensions.
type Extensions struct {
	Era   Era
	Nonce uint64
	Tip   *big.Int

	SpecVersion        uint32
	TransactionVersion uint32
	Genesis            types.Hash
	// Checkpoint is the hash of the era's birth block. Immortal
	// transactions use the genesis hash.
	Checkpoint types.Hash
	// MetadataHash enables CheckMetadataHash when set.
	MetadataHash *types.Hash
}

// Build returns the extra data carried in the envelope and the additional
// data that is only signed.
func (x *Extensions) Build(m *metadata.Metadata) (extra, additional []byte, err error) {
	for _, ext := range m.Extrinsic.SignedExtensions {
		switch ext.Identifier {
		case "CheckNonZeroSender", "CheckWeight", "PrevalidateAttests":
		case "CheckSpecVersion":
			additional = binary.LittleEndian.AppendUint32(additional, x.SpecVersion)
		case "CheckTxVersion":
			additional = binary.LittleEndian.AppendUint32(additional, x.TransactionVersion)
		case "CheckGenesis":
			additional = append(additional, x.Genesis[:]...)
		case "CheckMortality", "CheckEra":
			extra = append(extra, x.Era.Encode()...)
			if x.Era.IsImmortal() {
				additional = append(additional, x.Genesis[:]...)
			} else {
				additional = append(additional, x.Checkpoint[:]...)
			}
		case "CheckNonce":
			extra = scale.AppendCompact(extra, x.Nonce)
		case "ChargeTransactionPayment":
			if extra, err = x.appendTip(extra); err != nil {
				return nil, nil, err
			}
		case "ChargeAssetTxPayment":
			if extra, err = x.appendTip(extra); err != nil {
				return nil, nil, err
			}
			// no asset id: pay in the native token
			extra = append(extra, 0)
		case "CheckMetadataHash":
			if x.MetadataHash == nil {
				extra = append(extra, 0)
				additional = append(additional, 0)
			} else {
				extra = append(extra, 1)
				additional = append(append(additional, 1), x.MetadataHash[:]...)
			}
		default:
			if !isEmpty(m.Types, ext.Type) || !isEmpty(m.Types, ext.AdditionalSigned) {
				return nil, nil, fmt.Errorf("%w: %s", ErrUnknownExtension, ext.Identifier)
			}
		}
	}
	return extra, additional, nil
}

func (x *Extensions) appendTip(dst []byte) ([]byte, error) {
	if x.Tip == nil {
		return scale.AppendCompact(dst, 0), nil
	}
	return scale.AppendCompactBig(dst, x.Tip)
}

// isEmpty reports whether values of id encode to zero bytes.
func isEmpty(reg *registry.Registry, id registry.TypeID) bool {
	t, ok := reg.Resolve(id)
	if !ok {
		return false
	}
	switch t.Def.Kind {
	case registry.KindComposite:
		for _, f := range t.Def.Fields {
			if !isEmpty(reg, f.Type) {
				return false
			}
		}
		return true
	case registry.KindTuple:
		for _, e := range t.Def.Elems {
			if !isEmpty(reg, e) {
				return false
			}
		}
		return true
	case registry.KindArray:
		return t.Def.Len == 0 || isEmpty(reg, t.Def.Elem)
	}
	return false
}
