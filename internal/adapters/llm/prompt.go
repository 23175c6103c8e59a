package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avadhbsd/DevinKitMCP/internal/domain"
)

const intentSystemPrompt = `You are an assistant that helps determine user intent for a Kit.com account assistant. Analyze the user's message and decide which tool to use and what parameters to pass to it. Respond in JSON format only.`

const formatSystemPrompt = `You are an assistant that formats technical results into helpful, natural language responses for users.`

const explainSystemPrompt = `You are an assistant that explains Kit.com concepts clearly and accurately based on the provided documentation.`

const generateSystemPrompt = `You are an assistant for Kit.com that helps users with their questions and tasks.`

const toolsDescription = `Available tools:
1. get_tags() - Get all tags from Kit.com
2. count_tags() - Count the number of tags
3. create_tag(name: string) - Create a new tag
4. tag_subscriber(email: string, tag_name: string) - Tag a subscriber with a specific tag
5. get_subscribers(limit: int = 10, sort_by: string = "created_at", sort_order: string = "desc") - Get subscribers
6. count_subscribers() - Count the number of subscribers
7. get_subscriber_details(email: string) - Get details for a specific subscriber
8. get_forms() - Get all forms from Kit.com
9. create_form(name: string, redirect_url?: string) - Create a new form
10. get_broadcasts(limit: int = 10) - Get broadcasts
11. create_broadcast(subject: string, content: string, email_template_id?: string) - Create a new broadcast
12. explain_concept(concept: string) - Explain a Kit.com concept`

const intentFormatInstructions = `Respond in the following JSON format:
` + "```json" + `
{
    "tool": "tool_name",
    "parameters": {
        "param1": "value1"
    },
    "needs_clarification": false,
    "clarification_question": null
}
` + "```" + `

If clarification is needed:
` + "```json" + `
{
    "tool": null,
    "parameters": {},
    "needs_clarification": true,
    "clarification_question": "What specific information do you need?"
}
` + "```" + `

JSON response only:`

// BuildIntentPrompt assembles the classifier prompt: the new message, the
// conversation context, the closed tool list, and the answer contract.
func BuildIntentPrompt(message string, convCtx domain.Context) string {
	var sb strings.Builder
	sb.WriteString("User message:\n")
	sb.WriteString(message)
	sb.WriteString("\n\nConversation context:\n")
	sb.WriteString(renderContext(convCtx))
	sb.WriteString("\n\n")
	sb.WriteString(toolsDescription)
	sb.WriteString("\n\nAnalyze the user's message and determine which tool to use and what parameters to pass to it.\n")
	sb.WriteString("If you need more information from the user to determine the intent, indicate that clarification is needed.\n\n")
	sb.WriteString(intentFormatInstructions)
	return sb.String()
}

// BuildFormatPrompt asks for a natural-language rendering of a raw result.
func BuildFormatPrompt(operation string, result any, convCtx domain.Context) string {
	var sb strings.Builder
	sb.WriteString("Tool: ")
	sb.WriteString(operation)
	sb.WriteString("\n\nResult:\n")
	sb.WriteString(renderJSON(result))
	sb.WriteString("\n\nConversation context:\n")
	sb.WriteString(renderContext(convCtx))
	sb.WriteString("\n\nFormat the result into a helpful, natural language response for the user.\n")
	sb.WriteString("Use Markdown formatting for better readability.\n")
	sb.WriteString("Be concise but informative.\n")
	sb.WriteString("If the result contains IDs or other technical details that might be useful to the user, include them.")
	return sb.String()
}

func BuildExplainPrompt(topic, knowledgeBase string) string {
	return fmt.Sprintf(
		"%s\n\nWhat are %s?\n\nProvide a clear, concise explanation of the concept of %q in Kit.com based on the documentation above.\nFormat your response using Markdown for better readability.",
		knowledgeBase, topic, topic,
	)
}

func BuildGeneratePrompt(message string, convCtx domain.Context) string {
	var sb strings.Builder
	sb.WriteString(message)
	sb.WriteString("\n\nConversation context:\n")
	sb.WriteString(renderContext(convCtx))
	sb.WriteString("\n\nGenerate a helpful response to the user's message. If you don't know the answer, suggest what tools or information might help.\n")
	sb.WriteString("Use Markdown formatting for better readability.")
	return sb.String()
}

// renderContext serializes the last decision and a compact transcript.
func renderContext(convCtx domain.Context) string {
	var sb strings.Builder
	if convCtx.LastOperation != "" {
		sb.WriteString("last operation: ")
		sb.WriteString(convCtx.LastOperation)
		sb.WriteString("\n")
	}
	if len(convCtx.LastParameters) > 0 {
		sb.WriteString("last parameters: ")
		sb.WriteString(renderJSON(convCtx.LastParameters))
		sb.WriteString("\n")
	}
	for _, turn := range convCtx.History {
		sb.WriteString(string(turn.Role))
		sb.WriteString(": ")
		sb.WriteString(turn.Text)
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return "(empty)"
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderJSON(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
