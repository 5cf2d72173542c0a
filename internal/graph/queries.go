package graph

const (
	SaveConceptQuery = `
		MERGE (c:Concept {uri: $uri})
		SET c.name = $name,
			c.category = $category,
			c.relevance_score = $relevance_score,
			c.approved = $approved
		RETURN c.uri AS uri
	`

	SaveCategoryQuery = `
		MERGE (c:Category {uri: $uri})
		SET c.approved = $approved,
			c.description = $description
		RETURN c.uri AS uri
	`

	SaveParentEdgeQuery = `
		MATCH (child:Category {uri: $uri})
		MERGE (parent:Category {uri: $parent_uri})
		MERGE (child)-[:PARENT]->(parent)
		RETURN parent.uri AS uri
	`

	SaveEventQuery = `
		MERGE (e:Event {uri: $uri})
		SET e.title = $title,
			e.event_date = $event_date,
			e.source = $source,
			e.url = $url
		RETURN e.uri AS uri
	`

	SaveMentionsEdgeQuery = `
		MATCH (e:Event {uri: $event_uri})
		MATCH (c:Concept {uri: $concept_uri})
		MERGE (e)-[:MENTIONS]->(c)
		RETURN c.uri AS uri
	`

	SaveInCategoryEdgeQuery = `
		MATCH (e:Event {uri: $event_uri})
		MATCH (c:Category {uri: $category_uri})
		MERGE (e)-[:IN_CATEGORY]->(c)
		RETURN c.uri AS uri
	`

	MarkPostedQuery = `
		MATCH (e:Event {uri: $uri})
		SET e.posted_at = $posted_at,
			e.score = $score
		RETURN e.uri AS uri
	`
)
