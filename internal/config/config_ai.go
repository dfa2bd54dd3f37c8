package config

import "fmt"

// AI operation names. They double as config keys under "ai.".
const (
	OpAnalyze         = "analyze"
	OpDomain          = "domain"
	OpMetadata        = "metadata"
	OpRecommendations = "recommendations"
	OpSkillGaps       = "skillGaps"
	OpCoverLetter     = "coverLetter"
	OpInterviewPrep   = "interviewPrep"
	OpSalary          = "salary"
	OpChat            = "chat"
)

// Operations lists every AI operation in a stable order.
func Operations() []string {
	return []string{
		OpAnalyze, OpDomain, OpMetadata, OpRecommendations, OpSkillGaps,
		OpCoverLetter, OpInterviewPrep, OpSalary, OpChat,
	}
}

// operation returns a pointer to the raw per-operation section.
func (c *Config) operation(op string) (*OperationAIConfig, error) {
	switch op {
	case OpAnalyze:
		return &c.AI.Analyze, nil
	case OpDomain:
		return &c.AI.Domain, nil
	case OpMetadata:
		return &c.AI.Metadata, nil
	case OpRecommendations:
		return &c.AI.Recommendations, nil
	case OpSkillGaps:
		return &c.AI.SkillGaps, nil
	case OpCoverLetter:
		return &c.AI.CoverLetter, nil
	case OpInterviewPrep:
		return &c.AI.InterviewPrep, nil
	case OpSalary:
		return &c.AI.Salary, nil
	case OpChat:
		return &c.AI.Chat, nil
	default:
		return nil, fmt.Errorf("unknown AI operation: %s", op)
	}
}

// OperationConfig resolves the effective configuration of op: global
// fallbacks applied and prompt files replaced by their loaded content.
func (c *Config) OperationConfig(op string) (OperationAIConfig, error) {
	raw, err := c.operation(op)
	if err != nil {
		return OperationAIConfig{}, err
	}

	opCfg := *raw
	c.applyOperationDefaults(&opCfg)

	loaded := c.Prompts().Get(op)
	if loaded.System != "" {
		opCfg.Prompts.System = loaded.System
	}
	if loaded.User != "" {
		opCfg.Prompts.User = loaded.User
	}
	return opCfg, nil
}

// applyOperationDefaults fills unset operation fields from the global AI section.
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil || *opCfg.Timeout <= 0 {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		retries := c.AI.MaxRetries
		opCfg.MaxRetries = &retries
	}
	if opCfg.Temperature == nil {
		temp := c.AI.Temperature
		opCfg.Temperature = &temp
	}
	if opCfg.UseSystemPrompts == nil {
		use := c.AI.UseSystemPrompts
		opCfg.UseSystemPrompts = &use
	}
}
