package account

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"google.golang.org/protobuf/proto"
)

// SnapshotID returns a CIDv1 ("raw" multicodec, sha2-256 multihash) over the
// deterministic wire encoding of r. Records with equal contents share an ID.
func SnapshotID(r Record) (cid.Cid, error) {
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(EncodeRecord(r))
	if err != nil {
		return cid.Undef, err
	}
	sum, err := multihash.Sum(b, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
