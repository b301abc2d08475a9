package flow

import (
	"github.com/xiaot623/fingenie/internal/adapter/llm"
	"github.com/xiaot623/fingenie/internal/agent"
)

// Agent names, also used as the "agent" field of transport frames.
const (
	NameCustomerBot         = "customer_chatbot"
	NameHumanProxy          = "human_proxy"
	NameRMMind              = "rm_mind"
	NameRelationshipManager = "relationship_manager"
	NameJuniorAnalyst       = "junior_analyst"
	NameMacroAnalyst        = "macro_analyst"
	NameFinancialAdvisor    = "financial_advisor"
	NameBossManager         = "boss_manager"
	NameSystem              = "system"
)

const (
	customerBotTemperature = 0.9
	rmTemperature          = 0.7
	advisorTemperature     = 0.9
)

// Roster builds the agents taking part in a run. Every call returns a new
// Agent, so no state leaks between steps.
type Roster struct {
	Client llm.LLMClient
	Model  string
	// Customer answers the intake questions.
	Customer agent.HumanChannel
	// Approver signs off the final recommendation.
	Approver agent.HumanChannel
	// Temperature, when set, replaces every agent's default.
	Temperature *float64
}

func (r *Roster) llm(t float64) agent.LLM {
	if r.Temperature != nil {
		t = *r.Temperature
	}
	return agent.LLM{Client: r.Client, Model: r.Model, Temperature: t}
}

var intakeStop = agent.Any(agent.ExitWords, agent.Contains("relationship manager"))

func (r *Roster) CustomerBot() *agent.Agent {
	return agent.New(NameCustomerBot, customerBotInstruction, r.llm(customerBotTemperature), intakeStop)
}

func (r *Roster) HumanProxy() *agent.Agent {
	return agent.New(NameHumanProxy, "", agent.Human{Channel: r.Customer}, intakeStop)
}

func (r *Roster) RMMind() *agent.Agent {
	return agent.New(NameRMMind, "", agent.Relay{}, agent.ExitWords)
}

func (r *Roster) RelationshipManager() *agent.Agent {
	return agent.New(NameRelationshipManager, relationshipManagerInstruction, r.llm(rmTemperature), nil)
}

// RelationshipManagerRelay speaks as the relationship manager without
// generating text, to hand results to the next party.
func (r *Roster) RelationshipManagerRelay() *agent.Agent {
	return agent.New(NameRelationshipManager, relationshipManagerInstruction, agent.Relay{}, nil)
}

func (r *Roster) JuniorAnalyst() *agent.Agent {
	return agent.New(NameJuniorAnalyst, "", agent.Relay{}, nil)
}

func (r *Roster) FinancialAdvisor() *agent.Agent {
	return agent.New(NameFinancialAdvisor, financialAdvisorInstruction, r.llm(advisorTemperature), nil)
}

func (r *Roster) BossManager() *agent.Agent {
	return agent.New(NameBossManager, "", agent.Human{Channel: r.Approver}, agent.ExitWords)
}
