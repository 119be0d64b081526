package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PolymeshAssociation/polymesh-api-sub001/core"
	"github.com/PolymeshAssociation/polymesh-api-sub001/node"
	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
)

type palletSummary struct {
	Name      string   `json:"name"`
	Index     uint8    `json:"index"`
	Storage   []string `json:"storage,omitempty"`
	Calls     []string `json:"calls,omitempty"`
	Events    []string `json:"events,omitempty"`
	Constants []string `json:"constants,omitempty"`
}

type runtimeSummary struct {
	Version    types.RuntimeVersion `json:"version"`
	Types      int                  `json:"types"`
	Extensions []string             `json:"signedExtensions"`
	Pallets    []palletSummary      `json:"pallets"`
}

var atBlock string

// MetadataCmd prints an overview of the runtime.
var MetadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Show the runtime's pallets, calls, events and storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withNode(func(n *node.Node) error {
			rt, err := runtimeAt(cmd.Context(), n.Chain())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summarize(rt))
		})
	},
}

func init() {
	MetadataCmd.Flags().StringVar(&atBlock, "at", "", "block hash, best block when empty")
}

func blockParam() (*types.Hash, error) {
	if atBlock == "" {
		return nil, nil
	}
	b, err := types.ParseHash(atBlock)
	if err != nil {
		return nil, fmt.Errorf("--at: %w", err)
	}
	return &b, nil
}

func runtimeAt(ctx context.Context, chain *core.Chain) (*core.Runtime, error) {
	at, err := blockParam()
	if err != nil {
		return nil, err
	}
	return chain.RuntimeAt(ctx, at)
}

func summarize(rt *core.Runtime) runtimeSummary {
	m := rt.Metadata
	s := runtimeSummary{Version: rt.Version, Types: m.Types.Len()}
	for _, ext := range m.Extrinsic.SignedExtensions {
		s.Extensions = append(s.Extensions, ext.Identifier)
	}
	for _, p := range m.Pallets {
		ps := palletSummary{
			Name:   p.Name,
			Index:  p.Index,
			Calls:  variantNames(m.Types, p.Calls),
			Events: variantNames(m.Types, p.Event),
		}
		if p.Storage != nil {
			for _, e := range p.Storage.Entries {
				ps.Storage = append(ps.Storage, e.Name)
			}
		}
		for _, c := range p.Constants {
			ps.Constants = append(ps.Constants, c.Name)
		}
		s.Pallets = append(s.Pallets, ps)
	}
	return s
}

func variantNames(reg *registry.Registry, id *registry.TypeID) []string {
	if id == nil {
		return nil
	}
	t, ok := reg.Resolve(*id)
	if !ok || t.Def.Kind != registry.KindVariant {
		return nil
	}
	names := make([]string, len(t.Def.Variants))
	for i, v := range t.Def.Variants {
		names[i] = v.Name
	}
	return names
}
