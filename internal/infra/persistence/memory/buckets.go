package memory

import (
	"encoding/json"
	"fmt"

	"definecore/pkg/define"
)

// Bucket names under which durable backends persist snapshot sections.
const (
	BucketMetaDataVersion = "metadata_version"
	BucketItemGroups      = "item_groups"
	BucketItemDefs        = "item_defs"
	BucketCodeLists       = "code_lists"
)

// Buckets lists every snapshot bucket in write order.
var Buckets = []string{BucketMetaDataVersion, BucketItemGroups, BucketItemDefs, BucketCodeLists}

type header struct {
	OID   string       `json:"oid"`
	Model define.Model `json:"model"`
}

// EncodeBuckets marshals each snapshot section into its bucket payload.
func EncodeBuckets(snapshot Snapshot) (map[string][]byte, error) {
	out := make(map[string][]byte, len(Buckets))
	for _, bucket := range Buckets {
		var (
			data []byte
			err  error
		)
		switch bucket {
		case BucketMetaDataVersion:
			data, err = json.Marshal(header{OID: snapshot.OID, Model: snapshot.Model})
		case BucketItemGroups:
			data, err = json.Marshal(snapshot.ItemGroups)
		case BucketItemDefs:
			data, err = json.Marshal(snapshot.ItemDefs)
		case BucketCodeLists:
			data, err = json.Marshal(snapshot.CodeLists)
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// DecodeBuckets rebuilds a snapshot from bucket payloads. Unknown buckets and
// empty payloads are ignored; ImportState repairs what is missing.
func DecodeBuckets(raw map[string][]byte) (Snapshot, error) {
	var (
		snapshot Snapshot
		h        header
	)
	targets := map[string]any{
		BucketMetaDataVersion: &h,
		BucketItemGroups:      &snapshot.ItemGroups,
		BucketItemDefs:        &snapshot.ItemDefs,
		BucketCodeLists:       &snapshot.CodeLists,
	}
	for bucket, payload := range raw {
		target, ok := targets[bucket]
		if !ok || len(payload) == 0 {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	snapshot.OID, snapshot.Model = h.OID, h.Model
	return snapshot, nil
}
