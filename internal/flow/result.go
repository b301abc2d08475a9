package flow

import "github.com/xiaot623/fingenie/internal/domain"

// FinalIntro opens the closing messages of a completed run.
const FinalIntro = "Based on our analysis, here are the final recommendations:"

// FinalMessages are shown to the customer once every step has completed.
func FinalMessages(fc *domain.FlowContext) []domain.Message {
	advice, _ := fc.Get(domain.StepAdvisorySynthesis)
	final, _ := fc.Get(domain.StepApproval)
	return []domain.Message{
		{Role: NameSystem, Content: FinalIntro, Ordinal: 0},
		{Role: NameFinancialAdvisor, Content: "Financial Analysis:\n" + advice, Ordinal: 1},
		{Role: NameBossManager, Content: final, Ordinal: 2},
	}
}
