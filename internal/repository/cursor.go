package repository

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// cursorPayload is the JSON shape encoded into opaque pagination cursors.
// It carries the DynamoDB LastEvaluatedKey of the previous page.
type cursorPayload struct {
	PK string `json:"pk"`
	SK string `json:"sk"`
}

// encodeCursor turns a LastEvaluatedKey into an opaque token. Returns ""
// when there is no further page.
func encodeCursor(lastKey map[string]types.AttributeValue) (string, error) {
	if len(lastKey) == 0 {
		return "", nil
	}
	pk, ok := lastKey["PK"].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: last evaluated key missing PK")
	}
	sk, ok := lastKey["SK"].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: last evaluated key missing SK")
	}
	raw, err := json.Marshal(cursorPayload{PK: pk.Value, SK: sk.Value})
	if err != nil {
		return "", fmt.Errorf("repository: encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// decodeCursor turns an opaque token back into an ExclusiveStartKey.
// expectPK guards against cursors issued for a different partition.
func decodeCursor(cursor, expectPK string) (map[string]types.AttributeValue, error) {
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("repository: %w: %v", ErrBadCursor, err)
	}
	var payload cursorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("repository: %w: %v", ErrBadCursor, err)
	}
	if payload.PK == "" || payload.SK == "" || payload.PK != expectPK {
		return nil, fmt.Errorf("repository: %w: key mismatch", ErrBadCursor)
	}
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: payload.PK},
		"SK": &types.AttributeValueMemberS{Value: payload.SK},
	}, nil
}
