package submission

import (
	"sort"
	"strconv"

	"github.com/lshigami/Sunbirds/internal/store"
)

// ResponseItem is one answer on the wire. Exactly one of ResponseText and
// ResponseData is set, decided by the answer's recorded kind — never inferred
// from the value's shape at submission time.
type ResponseItem struct {
	QuestionID   string                 `json:"question_id"`
	ResponseText *string                `json:"response_text,omitempty"`
	ResponseData map[string]interface{} `json:"response_data,omitempty"`
}

// Payload is the single scoring request carrying every transformed answer for
// the attempt. There is no partial per-question submission in the base path.
type Payload struct {
	Responses []ResponseItem `json:"responses"`
}

// BuildPayload transforms the accumulated answer snapshot into the wire
// payload, ordered by question id for a stable request body.
func BuildPayload(answers map[uint]store.AnswerValue) Payload {
	ids := make([]uint, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items := make([]ResponseItem, 0, len(ids))
	for _, id := range ids {
		value := answers[id]
		item := ResponseItem{QuestionID: strconv.FormatUint(uint64(id), 10)}
		if value.IsText() {
			text := value.Text
			item.ResponseText = &text
		} else {
			data := value.Structured
			if data == nil {
				data = map[string]interface{}{}
			}
			item.ResponseData = data
		}
		items = append(items, item)
	}
	return Payload{Responses: items}
}
