// Package swml builds the SWML document handed to the voice platform: the
// agent prompt, voice and sampling parameters, and the SWAIG function
// declarations that point back at this service's webhook endpoints.
package swml

import (
	"github.com/sharrell/surveybot/internal/config"
)

// Document is the top-level SWML payload.
type Document struct {
	Sections Sections `json:"sections"`
}

// Sections holds the SWML execution sections; only main is used.
type Sections struct {
	Main []Verb `json:"main"`
}

// Verb is a single SWML instruction.
type Verb struct {
	AI *AI `json:"ai,omitempty"`
}

// AI configures the conversational agent.
type AI struct {
	Voice  string `json:"voice"`
	Params Params `json:"params"`
	Prompt Prompt `json:"prompt"`
	SWAIG  SWAIG  `json:"SWAIG"`
}

// Params are the agent's recognition and sampling parameters.
type Params struct {
	Confidence      float64 `json:"confidence"`
	BargeConfidence float64 `json:"barge_confidence"`
	TopP            float64 `json:"top_p"`
	Temperature     float64 `json:"temperature"`
	SWAIGAllowSWML  bool    `json:"swaig_allow_swml"`
	Conscience      bool    `json:"conscience"`
}

// Prompt wraps the agent instruction text.
type Prompt struct {
	Text string `json:"text"`
}

// SWAIG declares the server-side functions the agent may call.
type SWAIG struct {
	Functions []Function `json:"functions"`
}

// Function declares one callable webhook function.
type Function struct {
	Function   string   `json:"function"`
	Purpose    string   `json:"purpose"`
	WebHookURL string   `json:"web_hook_url"`
	Argument   Argument `json:"argument"`
}

// Argument is the JSON-schema-style argument declaration for a function.
type Argument struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
}

// Property describes one function argument.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

const promptText = `Your name is SurveyBot. Your job is to survey the caller with questions from a database.

### How to follow up on questions answered and protocols to follow
    Stay on focus and on protocol.
    You are not capable of troubleshooting or diagnosing problems.
    Execute functions when appropriate.

### Step 1
    Determine if the caller already exists in the database. Use the provided lookup_caller function with the caller's phone number as the argument.

### Step 2
    If the caller does not exist, gather their details so their answers can be recorded.

#### Step 2.1
    Ask the caller for their first name.

#### Step 2.2
    Ask the caller for their last name.

#### Step 2.3
    Ask the caller for their age in years.

#### Step 2.4
    Use the calling phone number as the caller's phone number. Use the provided create_caller function to register the caller.
    Do not tell the caller that a record was created in a database.

### Step 3
    Ask the caller the first question when it is returned.
    Continue to use the provided question_and_answer function to record each answer and get the next question. Send the question you asked in the question argument, and the answer in the answer argument.
    Stay on task and on protocol. Do not make up your own questions.
    Repeat this process until there are no questions remaining.`

// Build assembles the SWML document for the given agent configuration and
// webhook base URL.
func Build(agent config.AgentConfig, webhookBaseURL string) *Document {
	return &Document{
		Sections: Sections{
			Main: []Verb{{
				AI: &AI{
					Voice: agent.Voice,
					Params: Params{
						Confidence:      agent.Confidence,
						BargeConfidence: agent.BargeConfidence,
						TopP:            agent.TopP,
						Temperature:     agent.Temperature,
						SWAIGAllowSWML:  true,
						Conscience:      true,
					},
					Prompt: Prompt{Text: promptText},
					SWAIG: SWAIG{
						Functions: []Function{
							{
								Function:   "lookup_caller",
								Purpose:    "look up the caller in the database to see if they exist",
								WebHookURL: webhookBaseURL + "/swaig/lookup_caller",
								Argument: Argument{
									Type: "object",
									Properties: map[string]Property{
										"phone_number": {
											Type:        "string",
											Description: "the caller's phone number",
										},
									},
								},
							},
							{
								Function:   "create_caller",
								Purpose:    "register the caller so their survey answers can be recorded",
								WebHookURL: webhookBaseURL + "/swaig/create_caller",
								Argument: Argument{
									Type: "object",
									Properties: map[string]Property{
										"first_name": {
											Type:        "string",
											Description: "the caller's first name",
										},
										"last_name": {
											Type:        "string",
											Description: "the caller's last name",
										},
										"age": {
											Type:        "string",
											Description: "the caller's age",
										},
										"phone_number": {
											Type:        "string",
											Description: "the caller's phone number",
										},
									},
								},
							},
							{
								Function:   "question_and_answer",
								Purpose:    "record the answer and get the next question for the survey",
								WebHookURL: webhookBaseURL + "/swaig/question_and_answer",
								Argument: Argument{
									Type: "object",
									Properties: map[string]Property{
										"question": {
											Type:        "string",
											Description: "the question that was asked by SurveyBot",
										},
										"answer": {
											Type:        "string",
											Description: "the caller's answer to the question",
										},
									},
								},
							},
						},
					},
				},
			}},
		},
	}
}
