package llm

const spellPrompt = `Fix any spelling errors in this movie search query.

Only correct obvious typos. Don't change correctly spelled words.

Query: "%s"

If no errors, return the original query.
If you correct something, return just the corrected query.
Corrected:`

const rewritePrompt = `Rewrite this movie search query to be more specific and searchable.

Original: "%s"

Consider:
- Common movie knowledge (famous actors, popular films)
- Genre conventions (horror = scary, animation = cartoon)
- Keep it concise (under 10 words)
- It should be a google style search query that's very specific
- Don't use boolean logic

Examples:

- "that bear movie where leo gets attacked" -> "The Revenant Leonardo DiCaprio bear attack"
- "movie about bear in london with marmalade" -> "Paddington London marmalade"
- "scary movie with bear from few years ago" -> "bear horror movie 2015-2020"

Return only the rewritten query, don't add anything before or after the query
Rewritten query:`

const expandPrompt = `Expand this movie search query with related terms.

Add synonyms and related concepts that might appear in movie descriptions.
Keep expansions relevant and focused.
This will be appended to the original query.

Examples:

- "scary bear movie" -> "horror grizzly terrifying film"
- "action movie with bear" -> "thriller chase fight adventure"
- "comedy with bear" -> "funny humor lighthearted"

Query: "%s"
Return only the additional terms, don't add anything before or after them
`

const pointwisePrompt = `Rate how well this movie matches the search query.

Query: "%s"

Movie: %s - %s

Consider:
- Direct relevance to query
- User intent (what they're looking for)
- Content appropriateness

Rate 0-10 (10 = perfect match).
Give me ONLY the number in your response, no other text or explanation.

Score:`

const listwisePrompt = `Rank these movies by relevance to the search query.

Query: "%s"

Movies:
%s

Return ONLY the IDs in order of relevance (best match first). Return a valid JSON list, nothing else. For example:

[75, 12, 34, 2, 1]
`

const answerPrompt = `Answer the question or provide information based on the provided documents. This should be tailored to Hoopla users. Hoopla is a movie streaming service.

Query: %s

Documents:
%s

Provide a comprehensive answer that addresses the query:`

const summarizePrompt = `Provide information useful to this query by synthesizing information from multiple search results in detail.
The goal is to provide comprehensive information so that users know what their options are.
Your response should be information-dense and concise, with several key pieces of information about the genre, plot, etc. of each movie.
This should be tailored to Hoopla users. Hoopla is a movie streaming service.

Query: %s

Search Results:
%s

Provide a comprehensive 3-4 sentence answer that combines information from multiple sources:`

const citePrompt = `Answer the question or provide information based on the provided documents.

This should be tailored to Hoopla users. Hoopla is a movie streaming service.

If not enough information is available to give a good answer, say so but give as good of an answer as you can while citing the sources you have.

Query: %s

Documents:
%s

Instructions:
- Provide a comprehensive answer that addresses the query
- Cite sources using [1], [2], etc. format when referencing information
- If sources disagree, mention the different viewpoints
- If the answer isn't in the documents, say "I don't have enough information"
- Be direct and informative

Answer:`
