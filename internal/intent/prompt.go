package intent

import (
	"sort"
	"strings"
)

// buildSystemPrompt renders the classification instructions, including the
// allow-list from the static tables. The model is told to emit only the JSON
// object; data sources are never requested from it.
func buildSystemPrompt(t *Tables) string {
	var b strings.Builder

	b.WriteString(`You are an intent classification engine for an SRE reliability platform.

Your ONLY job is to:
1. Identify the PRIMARY intent of the user question.
2. Identify any SECONDARY intents if clearly implied.
3. Extract ENTITIES:
   - service name (if mentioned)
   - time range (explicit or implicit)
   - comparison period if present ("vs yesterday", "vs last month")

TIME RANGE EXTRACTION RULES:
- Static ranges: "today", "yesterday", "last_hour", "this_week", "last_week", "last_month"
- Dynamic ranges: "past_N_days", "past_N_hours", "past_N_weeks", "past_N_months"
  Examples:
  * "past 10 days" -> "past_10_days"
  * "last 5 hours" -> "past_5_hours"
  * "past 2 weeks" -> "past_2_weeks"
- If no time range is mentioned, default to "current"
- "recently" -> "last_hour"

RULES:
- Return ONLY valid JSON. No explanation text.
- Do NOT guess application, tenant, or IDs.
- If the service is unclear, set service to null. Never guess.
- Use ONLY intents from the allowed list.
- Be conservative. If unsure, choose the closest high-level intent.

ALLOWED PRIMARY INTENTS:

`)

	for _, cat := range t.categories {
		catDef := t.file.Categories[cat]
		b.WriteString(cat + ":\n")

		names := make([]string, 0, len(catDef.Intents))
		for name := range catDef.Intents {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteString("- " + name + ": " + catDef.Intents[name].Description + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(`OUTPUT JSON SCHEMA:

{
  "primary_intent": "<ONE_ALLOWED_INTENT>",
  "secondary_intents": [],
  "entities": {
    "service": null,
    "time_range": "current",
    "comparison_range": null
  }
}

Do NOT include data_sources in your response; they are derived from the
intents automatically. Return ONLY the JSON object.
`)

	return b.String()
}
