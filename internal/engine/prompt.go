package engine

// rewriteQueryPrompt converts a conversational query to a search-engine-optimized form.
// Args: original query.
const rewriteQueryPrompt = `Rewrite the following query into a concise, search-engine-optimized form.
Output ONLY the rewritten query, with no explanation, no punctuation at the end, no quotes.
Keep it under 10 words. Use English keywords even if the input is in another language.

Query: %s`
