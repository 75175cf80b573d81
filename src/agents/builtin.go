package agents

// PrimaryAgent is the agent that handles a turn unless routing says
// otherwise.
const PrimaryAgent = "primary"

// DefaultModel is used when the caller does not pin one.
const DefaultModel = "gpt-4o-mini"

// Builtin returns the registry shipped with the application: the primary
// chat agent and the three specialists it can route to.
func Builtin() *Registry {
	return MustNewRegistry(
		Config{
			Name:  PrimaryAgent,
			Model: DefaultModel,
			SystemPrompt: "You are a helpful assistant for job applications. " +
				"You can search the user's local document corpus and route " +
				"requests to specialized agents when appropriate.",
			Tools: []string{"corpus_query", "fetch_posting", "route_to_agent"},
		},
		Config{
			Name:  "_cover_letter",
			Model: DefaultModel,
			SystemPrompt: "You write tailored cover letters. Ground every " +
				"claim in the user's corpus; never invent experience.",
			Tools: []string{"corpus_query"},
		},
		Config{
			Name:  "_job_parser",
			Model: DefaultModel,
			SystemPrompt: "You extract structured facts from job postings: " +
				"title, company, location, requirements, deadlines.",
			Tools: []string{"fetch_posting"},
		},
		Config{
			Name:  "_data_dispatcher",
			Model: DefaultModel,
			SystemPrompt: "You locate and summarize documents from the " +
				"user's corpus and hand the relevant passages back.",
			Tools: []string{"corpus_query"},
		},
	)
}
