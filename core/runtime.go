package core

import (
	"github.com/PolymeshAssociation/polymesh-api-sub001/metadata"
	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types/extrinsic"
)

// Runtime is one metadata epoch: the runtime version, its metadata and the
// extrinsic layout derived from it. Type ids taken from one Runtime must
// not be used with another.
type Runtime struct {
	Version  types.RuntimeVersion
	Metadata *metadata.Metadata
	Layout   *extrinsic.Layout
}

func NewRuntime(version types.RuntimeVersion, encoded []byte) (*Runtime, error) {
	m, err := metadata.Parse(encoded)
	if err != nil {
		return nil, err
	}
	layout, err := extrinsic.LayoutFromMetadata(m)
	if err != nil {
		return nil, err
	}
	return &Runtime{Version: version, Metadata: m, Layout: layout}, nil
}

func (r *Runtime) Types() *registry.Registry { return r.Metadata.Types }

// SS58Prefix returns the System.SS58Prefix constant, or the generic prefix
// when the runtime does not declare one.
func (r *Runtime) SS58Prefix() uint16 {
	v, err := r.Metadata.ConstantValue("System", "SS58Prefix")
	if err != nil {
		return types.DefaultSS58Prefix
	}
	switch p := v.(type) {
	case uint16:
		return p
	case uint8:
		return uint16(p)
	}
	return types.DefaultSS58Prefix
}
