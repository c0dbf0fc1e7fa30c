package lib

import (
	"encoding/json"
	"os"
)

/*
	This file defines the genesis document: the fixed starting point of the chain.
	It names the initial ordered validator set; the block at height 1 links to the
	genesis sentinel hash instead of a predecessor block.
*/

// GenesisDoc is the json structure of the genesis file in the data directory
type GenesisDoc struct {
	ChainId    uint64   `json:"chainId"`    // the identifier of this chain
	Validators []string `json:"validators"` // hex encoded ordered validator identities
}

// NewGenesisFromFile() populates a GenesisDoc from a JSON file
func NewGenesisFromFile(filepath string) (*GenesisDoc, ErrorI) {
	bz, err := os.ReadFile(filepath)
	if err != nil {
		return nil, ErrReadFile(err)
	}
	doc := new(GenesisDoc)
	if err = json.Unmarshal(bz, doc); err != nil {
		return nil, ErrJSONUnmarshal(err)
	}
	return doc, nil
}

// WriteToFile() saves the GenesisDoc to a JSON file
func (g *GenesisDoc) WriteToFile(filepath string) ErrorI {
	bz, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return ErrJSONMarshal(err)
	}
	if err = os.WriteFile(filepath, bz, os.ModePerm); err != nil {
		return ErrWriteFile(err)
	}
	return nil
}

// Topology() decodes the validator identities and builds the height-1 topology
func (g *GenesisDoc) Topology() (*Topology, ErrorI) {
	if g == nil || len(g.Validators) == 0 {
		return nil, ErrNilGenesis()
	}
	validators := make([][]byte, 0, len(g.Validators))
	for _, v := range g.Validators {
		bz, err := StringToBytes(v)
		if err != nil {
			return nil, ErrPubKeyFromBytes(err)
		}
		validators = append(validators, bz)
	}
	return NewTopology(validators, 1)
}
