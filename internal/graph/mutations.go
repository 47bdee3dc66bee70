package graph

import (
	"time"

	"persona-ingest/internal/domain"
)

// mutation es una operacion de grafo con nombre, dueña de su texto Cypher
// y del binding de parametros. Cada mutacion es idempotente por si misma
// (MERGE/SET por clave estable), asi re-ejecutar una secuencia completa
// tras un reintento nunca duplica estado.
type mutation struct {
	name   string
	cypher string
	params map[string]any
}

func mergeUserNode(userID string) mutation {
	return mutation{
		name: "merge_user_node",
		cypher: `
			MERGE (u:User {userID: $userID})
			ON CREATE SET u.createdAt = datetime($now)
		`,
		params: map[string]any{
			"userID": userID,
			"now":    time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func mergeTraitNode(traitID string, cand domain.ExtractedTraitCandidate) mutation {
	return mutation{
		name: "merge_trait_node",
		cypher: `
			MERGE (t:Trait {traitID: $traitID})
			SET t.name = $name,
			    t.description = $description,
			    t.category = $category,
			    t.status = $status,
			    t.origin = $origin,
			    t.confidence = $confidence,
			    t.lastRefinedTimestamp = datetime($now)
		`,
		params: map[string]any{
			"traitID":     traitID,
			"name":        cand.TraitName,
			"description": cand.TraitDescription,
			"category":    cand.TraitCategory,
			"status":      domain.GraphTraitStatusCandidate,
			"origin":      domain.TraitOriginAIDerived,
			"confidence":  cand.ConfidenceScore,
			"now":         time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func mergeHasTraitRel(userID, traitID string) mutation {
	return mutation{
		name: "merge_has_trait_rel",
		cypher: `
			MERGE (u:User {userID: $userID})
			MERGE (t:Trait {traitID: $traitID})
			MERGE (u)-[r:HAS_TRAIT]->(t)
			ON CREATE SET r.active = true, r.since = datetime($now)
		`,
		params: map[string]any{
			"userID":  userID,
			"traitID": traitID,
			"now":     time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func mergeEvidenceNode(evidenceKey string, ev domain.EvidenceSnippet) mutation {
	params := map[string]any{
		"evidenceKey":     evidenceKey,
		"type":            ev.Type,
		"content":         ev.Content,
		"sourcePackageID": ev.SourcePackageID,
		"sourceDetail":    ev.SourceDetail,
	}
	if ev.RelevanceScore != nil {
		params["relevanceScore"] = *ev.RelevanceScore
	} else {
		params["relevanceScore"] = nil
	}
	return mutation{
		name: "merge_evidence_node",
		cypher: `
			MERGE (e:Evidence {evidenceKey: $evidenceKey})
			SET e.type = $type,
			    e.content = $content,
			    e.sourcePackageID = $sourcePackageID,
			    e.sourceDetail = $sourceDetail,
			    e.relevanceScore = $relevanceScore
		`,
		params: params,
	}
}

func mergeSupportedByRel(traitID, evidenceKey string) mutation {
	return mutation{
		name: "merge_supported_by_rel",
		cypher: `
			MERGE (t:Trait {traitID: $traitID})
			MERGE (e:Evidence {evidenceKey: $evidenceKey})
			MERGE (t)-[:SUPPORTED_BY]->(e)
		`,
		params: map[string]any{
			"traitID":     traitID,
			"evidenceKey": evidenceKey,
		},
	}
}

func mergeConceptNode(conceptKey string, c domain.ConceptMention) mutation {
	params := map[string]any{
		"conceptKey": conceptKey,
		"name":       c.Name,
	}
	return mutation{
		name: "merge_concept_node",
		cypher: `
			MERGE (c:Concept {name: $conceptKey})
			ON CREATE SET c.displayName = $name
		`,
		params: params,
	}
}

func mergeMentionsRel(userID, conceptKey, packageID string, c domain.ConceptMention) mutation {
	params := map[string]any{
		"userID":     userID,
		"conceptKey": conceptKey,
		"frequency":  c.Frequency,
		"packageID":  packageID,
		"now":        time.Now().UTC().Format(time.RFC3339),
	}
	if c.SentimentAvg != nil {
		params["sentimentAvg"] = *c.SentimentAvg
	} else {
		params["sentimentAvg"] = nil
	}
	return mutation{
		name: "merge_mentions_rel",
		cypher: `
			MERGE (u:User {userID: $userID})
			MERGE (c:Concept {name: $conceptKey})
			MERGE (u)-[r:MENTIONS]->(c)
			SET r.frequency = $frequency,
			    r.sentimentAvg = $sentimentAvg,
			    r.lastSeenPackageID = $packageID,
			    r.lastSeen = datetime($now)
		`,
		params: params,
	}
}

func setTraitDecision(traitID string, props map[string]any) mutation {
	return mutation{
		name: "set_trait_decision",
		cypher: `
			MATCH (t:Trait {traitID: $traitID})
			SET t += $props,
			    t.lastRefinedTimestamp = datetime($now)
			RETURN properties(t) AS props
		`,
		params: map[string]any{
			"traitID": traitID,
			"props":   props,
			"now":     time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func setHasTraitActive(userID, traitID string, active bool) mutation {
	return mutation{
		name: "set_has_trait_active",
		cypher: `
			MATCH (u:User {userID: $userID})-[r:HAS_TRAIT]->(t:Trait {traitID: $traitID})
			SET r.active = $active,
			    r.updatedAt = datetime($now)
		`,
		params: map[string]any{
			"userID":  userID,
			"traitID": traitID,
			"active":  active,
			"now":     time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func mergeCustomTraitNode(traitID, name, category, description string, userConfidence *float64) mutation {
	params := map[string]any{
		"traitID":     traitID,
		"name":        name,
		"category":    category,
		"description": description,
		"status":      domain.GraphTraitStatusConfirmed,
		"origin":      domain.TraitOriginUserDefined,
		"now":         time.Now().UTC().Format(time.RFC3339),
	}
	if userConfidence != nil {
		params["userConfidence"] = *userConfidence
	} else {
		params["userConfidence"] = nil
	}
	return mutation{
		name: "merge_custom_trait_node",
		cypher: `
			MERGE (t:Trait {traitID: $traitID})
			SET t.name = $name,
			    t.category = $category,
			    t.description = $description,
			    t.status = $status,
			    t.origin = $origin,
			    t.userConfidence = $userConfidence,
			    t.lastRefinedTimestamp = datetime($now)
			RETURN properties(t) AS props
		`,
		params: params,
	}
}

func mergeStyleEntry(userID, styleDimension, styleValue string) mutation {
	return mutation{
		name: "merge_style_entry",
		cypher: `
			MERGE (s:CommunicationStyleEntry {userID: $userID, styleDimension: $styleDimension})
			SET s.styleValue = $styleValue,
			    s.lastUpdated = datetime($now)
			RETURN properties(s) AS props
		`,
		params: map[string]any{
			"userID":         userID,
			"styleDimension": styleDimension,
			"styleValue":     styleValue,
			"now":            time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func mergeAdoptsStyleRel(userID, styleDimension string) mutation {
	return mutation{
		name: "merge_adopts_style_rel",
		cypher: `
			MERGE (u:User {userID: $userID})
			MERGE (s:CommunicationStyleEntry {userID: $userID, styleDimension: $styleDimension})
			MERGE (u)-[:ADOPTS_COMMUNICATION_STYLE]->(s)
		`,
		params: map[string]any{
			"userID":         userID,
			"styleDimension": styleDimension,
		},
	}
}
