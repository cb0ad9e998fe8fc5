package drafts

import (
	"encoding/json"
	"fmt"

	"github.com/welile/tenants-hub/finance"
)

type envelope struct {
	Kind  Kind            `json:"kind"`
	Draft json.RawMessage `json:"draft"`
}

// Marshal encodes a draft with its kind tag.
func Marshal(d TenantDraft) ([]byte, error) {
	if d == nil {
		return nil, invalid("draft is empty")
	}
	body, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft: %w", err)
	}
	return json.Marshal(envelope{Kind: d.Kind(), Draft: body})
}

// Unmarshal decodes an envelope written by Marshal. The draft itself is not
// validated: a saved form may be incomplete.
func Unmarshal(data []byte) (TenantDraft, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", finance.ErrInvalidDraft, err)
	}
	if len(env.Draft) == 0 {
		return nil, invalid("missing draft body")
	}

	switch env.Kind {
	case KindPipeline:
		var d PipelineTenantDraft
		if err := json.Unmarshal(env.Draft, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", finance.ErrInvalidDraft, err)
		}
		return d, nil
	case KindFull:
		var d FullTenantDraft
		if err := json.Unmarshal(env.Draft, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", finance.ErrInvalidDraft, err)
		}
		return d, nil
	default:
		return nil, invalid(fmt.Sprintf("unknown draft kind %q", env.Kind))
	}
}
