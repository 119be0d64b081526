package testutil

import (
	"fmt"

	"github.com/PolymeshAssociation/polymesh-api-sub001/metadata"
	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
)

// Runtime is a small but structurally faithful runtime: System and Balances
// pallets, the usual signed extensions and a MultiAddress/MultiSignature
// extrinsic.
type Runtime struct {
	Meta    *metadata.Metadata
	Encoded []byte

	U8, U16, U32, U64, U128 registry.TypeID
	Bytes                   registry.TypeID
	AccountID, H256         registry.TypeID
	MultiAddress            registry.TypeID
	MultiSignature          registry.TypeID
	Era                     registry.TypeID
	Phase                   registry.TypeID
	EventRecord             registry.TypeID
	EventRecords            registry.TypeID
	RuntimeEvent            registry.TypeID
	RuntimeCall             registry.TypeID
	AccountInfo             registry.TypeID
}

// Extension identifiers used by the sample runtime, in extrinsic order.
var SampleExtensions = []string{
	"CheckNonZeroSender",
	"CheckSpecVersion",
	"CheckTxVersion",
	"CheckGenesis",
	"CheckMortality",
	"CheckNonce",
	"CheckWeight",
	"ChargeTransactionPayment",
}

// SampleRuntime builds the sample runtime. The metadata goes through
// Encode and Parse, so Meta is exactly what a node would serve.
func SampleRuntime() *Runtime {
	rt, err := buildSample()
	if err != nil {
		panic(fmt.Sprintf("testutil: sample runtime: %v", err))
	}
	return rt
}

func buildSample() (*Runtime, error) {
	b := NewBuilder()
	rt := &Runtime{
		U8:   b.Primitive(registry.U8),
		U16:  b.Primitive(registry.U16),
		U32:  b.Primitive(registry.U32),
		U64:  b.Primitive(registry.U64),
		U128: b.Primitive(registry.U128),
	}
	unit := b.Tuple()
	rt.Bytes = b.Sequence(rt.U8)
	bytes32 := b.Array(rt.U8, 32)
	rt.AccountID = b.Composite([]string{"sp_core", "crypto", "AccountId32"}, Unnamed(bytes32))
	rt.H256 = b.Composite([]string{"primitive_types", "H256"}, Unnamed(bytes32))
	compactU32 := b.Compact(rt.U32)
	compactU128 := b.Compact(rt.U128)

	rt.MultiAddress = b.Variant([]string{"sp_runtime", "multiaddress", "MultiAddress"},
		Case("Id", 0, Unnamed(rt.AccountID)),
		Case("Index", 1, Unnamed(compactU32)),
		Case("Raw", 2, Unnamed(rt.Bytes)),
		Case("Address32", 3, Unnamed(bytes32)),
		Case("Address20", 4, Unnamed(b.Array(rt.U8, 20))),
	)
	sig64 := b.Array(rt.U8, 64)
	ed := b.Composite([]string{"sp_core", "ed25519", "Signature"}, Unnamed(sig64))
	sr := b.Composite([]string{"sp_core", "sr25519", "Signature"}, Unnamed(sig64))
	ec := b.Composite([]string{"sp_core", "ecdsa", "Signature"}, Unnamed(b.Array(rt.U8, 65)))
	rt.MultiSignature = b.Variant([]string{"sp_runtime", "MultiSignature"},
		Case("Ed25519", 0, Unnamed(ed)),
		Case("Sr25519", 1, Unnamed(sr)),
		Case("Ecdsa", 2, Unnamed(ec)),
	)

	eras := []registry.Variant{Case("Immortal", 0)}
	for i := 1; i < 256; i++ {
		eras = append(eras, Case(fmt.Sprintf("Mortal%d", i), uint8(i), Unnamed(rt.U8)))
	}
	rt.Era = b.Variant([]string{"sp_runtime", "generic", "era", "Era"}, eras...)

	// System
	dispatchClass := b.Variant([]string{"frame_support", "dispatch", "DispatchClass"},
		Case("Normal", 0), Case("Operational", 1), Case("Mandatory", 2))
	pays := b.Variant([]string{"frame_support", "dispatch", "Pays"}, Case("Yes", 0), Case("No", 1))
	dispatchInfo := b.Composite([]string{"frame_support", "dispatch", "DispatchInfo"},
		Named("weight", rt.U64), Named("class", dispatchClass), Named("pays_fee", pays))
	moduleError := b.Composite([]string{"sp_runtime", "ModuleError"},
		Named("index", rt.U8), Named("error", b.Array(rt.U8, 4)))
	dispatchError := b.Variant([]string{"sp_runtime", "DispatchError"},
		Case("Other", 0), Case("CannotLookup", 1), Case("BadOrigin", 2), Case("Module", 3, Unnamed(moduleError)))
	systemEvent := b.Variant([]string{"frame_system", "pallet", "Event"},
		Case("ExtrinsicSuccess", 0, Named("dispatch_info", dispatchInfo)),
		Case("ExtrinsicFailed", 1, Named("dispatch_error", dispatchError), Named("dispatch_info", dispatchInfo)),
		Case("NewAccount", 3, Named("account", rt.AccountID)),
	)
	systemCall := b.Variant([]string{"frame_system", "pallet", "Call"},
		Case("remark", 0, Named("remark", rt.Bytes)),
		Case("remark_with_event", 7, Named("remark", rt.Bytes)),
	)
	systemError := b.Variant([]string{"frame_system", "pallet", "Error"},
		Case("InvalidSpecName", 0), Case("SpecVersionNeedsToIncrease", 1))
	accountData := b.Composite([]string{"pallet_balances", "types", "AccountData"},
		Named("free", rt.U128), Named("reserved", rt.U128))
	rt.AccountInfo = b.Composite([]string{"frame_system", "AccountInfo"},
		Named("nonce", rt.U32), Named("data", accountData))

	// Balances
	balancesEvent := b.Variant([]string{"pallet_balances", "pallet", "Event"},
		Case("Endowed", 0, Named("account", rt.AccountID), Named("free_balance", rt.U128)),
		Case("Transfer", 2, Named("from", rt.AccountID), Named("to", rt.AccountID), Named("amount", rt.U128)),
		Case("Deposit", 7, Named("who", rt.AccountID), Named("amount", rt.U128)),
	)
	balancesCall := b.Variant([]string{"pallet_balances", "pallet", "Call"},
		Case("transfer_allow_death", 0, Named("dest", rt.MultiAddress), Named("value", compactU128)),
		Case("transfer_keep_alive", 3, Named("dest", rt.MultiAddress), Named("value", compactU128)),
	)
	balancesError := b.Variant([]string{"pallet_balances", "pallet", "Error"},
		Case("InsufficientBalance", 2))

	rt.RuntimeEvent = b.Variant([]string{"node_runtime", "RuntimeEvent"},
		Case("System", 0, Unnamed(systemEvent)),
		Case("Balances", 5, Unnamed(balancesEvent)),
	)
	rt.RuntimeCall = b.Variant([]string{"node_runtime", "RuntimeCall"},
		Case("System", 0, Unnamed(systemCall)),
		Case("Balances", 5, Unnamed(balancesCall)),
	)
	rt.Phase = b.Variant([]string{"frame_system", "Phase"},
		Case("ApplyExtrinsic", 0, Unnamed(rt.U32)),
		Case("Finalization", 1),
		Case("Initialization", 2),
	)
	rt.EventRecord = b.Composite([]string{"frame_system", "EventRecord"},
		Named("phase", rt.Phase), Named("event", rt.RuntimeEvent), Named("topics", b.Sequence(rt.H256)))
	b.Param(rt.EventRecord, "E", rt.RuntimeEvent)
	b.Param(rt.EventRecord, "T", rt.H256)
	rt.EventRecords = b.Sequence(rt.EventRecord)

	// Signed extensions
	extTypes := []registry.TypeID{
		b.Composite([]string{"frame_system", "extensions", "check_non_zero_sender", "CheckNonZeroSender"}),
		b.Composite([]string{"frame_system", "extensions", "check_spec_version", "CheckSpecVersion"}),
		b.Composite([]string{"frame_system", "extensions", "check_tx_version", "CheckTxVersion"}),
		b.Composite([]string{"frame_system", "extensions", "check_genesis", "CheckGenesis"}),
		b.Composite([]string{"frame_system", "extensions", "check_mortality", "CheckMortality"}, Unnamed(rt.Era)),
		b.Composite([]string{"frame_system", "extensions", "check_nonce", "CheckNonce"}, Unnamed(compactU32)),
		b.Composite([]string{"frame_system", "extensions", "check_weight", "CheckWeight"}),
		b.Composite([]string{"pallet_transaction_payment", "ChargeTransactionPayment"}, Unnamed(compactU128)),
	}
	additional := []registry.TypeID{unit, rt.U32, rt.U32, rt.H256, rt.H256, unit, unit, unit}
	extra := b.Tuple(extTypes...)

	extrinsic := b.Composite([]string{"sp_runtime", "generic", "unchecked_extrinsic", "UncheckedExtrinsic"}, Unnamed(rt.Bytes))
	b.Param(extrinsic, "Address", rt.MultiAddress)
	b.Param(extrinsic, "Call", rt.RuntimeCall)
	b.Param(extrinsic, "Signature", rt.MultiSignature)
	b.Param(extrinsic, "Extra", extra)
	runtime := b.Composite([]string{"node_runtime", "Runtime"})

	reg, err := b.Registry()
	if err != nil {
		return nil, err
	}

	blake := []metadata.Hasher{metadata.Blake2_128Concat}
	twox := []metadata.Hasher{metadata.Twox64Concat}
	m := &metadata.Metadata{
		Types: reg,
		Pallets: []metadata.Pallet{
			{
				Name: "System",
				Storage: &metadata.PalletStorage{Prefix: "System", Entries: []metadata.StorageEntry{
					{Name: "Account", Modifier: metadata.Default, Map: true, Hashers: blake, Key: rt.AccountID, Value: rt.AccountInfo, Default: make([]byte, 36)},
					{Name: "BlockHash", Modifier: metadata.Default, Map: true, Hashers: twox, Key: rt.U32, Value: rt.H256, Default: make([]byte, 32)},
					{Name: "Number", Modifier: metadata.Default, Value: rt.U32, Default: make([]byte, 4)},
					{Name: "Events", Modifier: metadata.Default, Value: rt.EventRecords, Default: []byte{0}},
				}},
				Calls: &systemCall,
				Event: &systemEvent,
				Constants: []metadata.Constant{
					{Name: "BlockHashCount", Type: rt.U32, Value: []byte{0x60, 0x09, 0, 0}},
					{Name: "SS58Prefix", Type: rt.U16, Value: []byte{42, 0}},
				},
				Error: &systemError,
				Index: 0,
			},
			{
				Name: "Balances",
				Storage: &metadata.PalletStorage{Prefix: "Balances", Entries: []metadata.StorageEntry{
					{Name: "TotalIssuance", Modifier: metadata.Default, Value: rt.U128, Default: make([]byte, 16)},
				}},
				Calls: &balancesCall,
				Event: &balancesEvent,
				Constants: []metadata.Constant{
					{Name: "ExistentialDeposit", Type: rt.U128, Value: append([]byte{0xf4, 0x01}, make([]byte, 14)...)},
				},
				Error: &balancesError,
				Index: 5,
			},
		},
		Extrinsic:   metadata.ExtrinsicInfo{Type: extrinsic, Version: 4},
		RuntimeType: runtime,
	}
	for i, name := range SampleExtensions {
		m.Extrinsic.SignedExtensions = append(m.Extrinsic.SignedExtensions, metadata.SignedExtension{
			Identifier:       name,
			Type:             extTypes[i],
			AdditionalSigned: additional[i],
		})
	}

	rt.Encoded = m.Encode()
	if rt.Meta, err = metadata.Parse(rt.Encoded); err != nil {
		return nil, err
	}
	return rt, nil
}
