package config

// DefaultPrompts are used for any template the TOML file leaves unset.
func DefaultPrompts() Prompts {
	return Prompts{
		ClassifyConcept: `Classify the following concept that appeared in health news.
Name: %s
Type: %s
Known description: %s

Answer with a JSON object with these keys:
- "category": one of "condition", "treatment", "organization", "other"
- "relevance_score": an integer from 0 to 100 estimating how relevant the concept is to improving the health of children and adolescents in low and middle income countries
- "description": one or two sentences describing the concept`,

		DescribeCategory: `Please write a description for the category with an uri of %s. Only write the description and nothing else (e.g. no 'This category is about...').`,

		Translate: `Translate the following text from the language with ISO 639-3 code "%s" into English. Only provide the translation and nothing else.
Text:
%s`,

		RateRelevance: `Please estimate the relevance of the following news article with a score from 0 (least relevant) to 100 (most relevant). In your estimation, the following factors carry the most weight in this order:
1) Impact on child and adolescent health
2) Relevance to global health (not only local)
3) Relevance to the development stage of treatments
Give a lower score to articles that are mostly historical, political or only announce a conference.
Give your integer estimate in JSON format under the key "relevance".
===Article===
Title: %s
%s`,

		DominantConcept: `Which single concept is this news event mainly about?
Event: %s
%s
Candidate concepts (uri: name):
%s
Answer with a JSON object {"concept": "<uri>"} using one of the candidate uris.`,

		Novelty: `A new event was found about %s. These summaries were already published on the same topic:
%s
New event:
Title: %s
%s

Summarize only the information that is new compared to the published summaries in up to three bullet points. Start each point with '<bullet>', which will later be replaced with the correct symbol.
Answer with a JSON object with keys "bullets" (string) and "important" (boolean, true only if the new event adds material information).`,

		Summary: `Please summarize the following news in up to three bullet points. Start each point with '<bullet>', which will later be replaced with the correct symbol. Only provide the bullets and nothing else (e.g. here's the summary).
Title: %s
Text:
%s`,

		SurveyPropertyName: `How would you call the property of an object that contains the answer to the question: %s? Only provide the lower case snake_case_name of the property and nothing else.`,

		SurveyPropertyType: `Given this question: '%s', what is the data type of the answer? Please provide the data type in lower case and nothing else. Choose from the following options: integer, string, float, boolean, list, dictionary.`,

		SurveyQuestion: `I would like to know something about an organization called %s. Please give a concise answer to question: %s? %s`,
	}
}

// withDefaults fills every empty template from DefaultPrompts.
func (p Prompts) withDefaults() Prompts {
	d := DefaultPrompts()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&p.ClassifyConcept, d.ClassifyConcept)
	fill(&p.DescribeCategory, d.DescribeCategory)
	fill(&p.Translate, d.Translate)
	fill(&p.RateRelevance, d.RateRelevance)
	fill(&p.DominantConcept, d.DominantConcept)
	fill(&p.Novelty, d.Novelty)
	fill(&p.Summary, d.Summary)
	fill(&p.SurveyPropertyName, d.SurveyPropertyName)
	fill(&p.SurveyPropertyType, d.SurveyPropertyType)
	fill(&p.SurveyQuestion, d.SurveyQuestion)
	return p
}
