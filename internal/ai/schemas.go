package ai

import "google.golang.org/genai"

func stringArray() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
}

func metadataSchema() *genai.Schema {
	fields := []string{"name", "email", "phone", "location", "yearsExperience", "educationLevel", "currentRole"}
	props := make(map[string]*genai.Schema, len(fields))
	for _, f := range fields {
		props[f] = &genai.Schema{Type: genai.TypeString}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   fields,
	}
}

func skillGapSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"currentSkills": stringArray(),
			"skillGaps": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"skill": {Type: genai.TypeString},
						"importance": {
							Type: genai.TypeString,
							Enum: []string{"high", "medium", "low"},
						},
						"resources": stringArray(),
					},
					Required: []string{"skill", "importance", "resources"},
				},
			},
		},
		Required: []string{"currentSkills", "skillGaps"},
	}
}

func interviewPrepSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"technicalQuestions":  stringArray(),
			"behavioralQuestions": stringArray(),
			"keyTalkingPoints":    stringArray(),
			"questionsToAsk":      stringArray(),
		},
		Required: []string{"technicalQuestions", "behavioralQuestions", "keyTalkingPoints", "questionsToAsk"},
	}
}

func salarySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"estimatedRange":  {Type: genai.TypeString},
			"factors":         stringArray(),
			"negotiationTips": stringArray(),
		},
		Required: []string{"estimatedRange", "factors", "negotiationTips"},
	}
}
