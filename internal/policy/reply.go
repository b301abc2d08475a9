package policy

import (
	"strings"

	"github.com/xiaot623/fingenie/internal/domain"
)

var (
	approveWords = map[string]bool{"approve": true, "approved": true, "yes": true, "ok": true}
	rejectWords  = map[string]bool{"reject": true, "rejected": true, "no": true}
)

// ClassifyReply maps the approver's free text answer to a decision. Known
// approve or reject words decide directly. Any other text approves, and
// the text is kept as the approver's comments.
func ClassifyReply(reply string) (status domain.ApprovalStatus, comments string) {
	norm := strings.ToLower(strings.Trim(strings.TrimSpace(reply), ".!"))
	switch {
	case approveWords[norm]:
		return domain.ApprovalStatusApproved, ""
	case rejectWords[norm]:
		return domain.ApprovalStatusRejected, ""
	default:
		return domain.ApprovalStatusApproved, strings.TrimSpace(reply)
	}
}
