package mcp

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func numberProp(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

func boolProp(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

func enumProp(description string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": description, "enum": values}
}

func pointProp(description string) map[string]any {
	return map[string]any{
		"type":        "object",
		"description": description,
		"properties": map[string]any{
			"lat": numberProp("Latitude in degrees"),
			"lng": numberProp("Longitude in degrees"),
		},
		"required": []string{"lat", "lng"},
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// Authoring
		{
			Name:        "create_client",
			Description: "Create a client site that owns checkpoints",
			InputSchema: objectSchema(map[string]any{
				"id":      stringProp("Client identifier (optional, generated if omitted)"),
				"name":    stringProp("Client display name"),
				"address": stringProp("Street address"),
			}, "name"),
		},
		{
			Name:        "list_clients",
			Description: "List the tenant's clients",
			InputSchema: objectSchema(map[string]any{}),
			ReadOnly:    true,
		},
		{
			Name:        "create_checkpoint",
			Description: "Create an active checkpoint at a client site. A 9-digit code is generated when manual_code is omitted",
			InputSchema: objectSchema(map[string]any{
				"client_id":   stringProp("Owning client ID"),
				"name":        stringProp("Checkpoint name"),
				"location":    pointProp("Checkpoint coordinates"),
				"manual_code": stringProp("Exactly 9 digits"),
			}, "client_id", "name"),
		},
		{
			Name:        "list_checkpoints",
			Description: "List a client's checkpoints",
			InputSchema: objectSchema(map[string]any{
				"client_id":        stringProp("Client ID"),
				"include_inactive": boolProp("Include retired checkpoints"),
			}, "client_id"),
			ReadOnly: true,
		},
		{
			Name:        "deactivate_checkpoint",
			Description: "Retire a checkpoint. Existing visits are kept",
			InputSchema: objectSchema(map[string]any{
				"id": stringProp("Checkpoint ID"),
			}, "id"),
		},
		{
			Name:        "create_template",
			Description: "Create a round template covering an ordered list of clients",
			InputSchema: objectSchema(map[string]any{
				"name":               stringProp("Template name"),
				"shift_type":         enumProp("Shift the template is scheduled for", "day", "night", "full"),
				"signature_required": boolProp("Whether completion needs a signature"),
				"client_ids": map[string]any{
					"type":        "array",
					"description": "Client IDs in visiting order",
					"items":       map[string]any{"type": "string"},
				},
			}, "name", "shift_type", "client_ids"),
		},
		{
			Name:        "copy_template",
			Description: "Create an edited copy of a template. Rounds already created keep the source's scope",
			InputSchema: objectSchema(map[string]any{
				"id":                 stringProp("Source template ID"),
				"name":               stringProp("New name"),
				"shift_type":         enumProp("New shift type", "day", "night", "full"),
				"signature_required": boolProp("New signature flag"),
				"client_ids": map[string]any{
					"type":        "array",
					"description": "Replacement client list",
					"items":       map[string]any{"type": "string"},
				},
				"retire_source": boolProp("Deactivate the source after copying"),
			}, "id"),
		},
		{
			Name:        "list_templates",
			Description: "List round templates",
			InputSchema: objectSchema(map[string]any{
				"include_inactive": boolProp("Include retired templates"),
			}),
			ReadOnly: true,
		},
		{
			Name:        "deactivate_template",
			Description: "Retire a template so no new rounds use it",
			InputSchema: objectSchema(map[string]any{
				"id": stringProp("Template ID"),
			}, "id"),
		},

		// Rounds
		{
			Name:        "create_round",
			Description: "Create a pending round from a template or for a single client (ad hoc)",
			InputSchema: objectSchema(map[string]any{
				"template_id":       stringProp("Template ID (exclusive with client_id)"),
				"client_id":         stringProp("Client ID for an ad hoc round (exclusive with template_id)"),
				"assigned_operator": stringProp("Pre-assign the round to an operator"),
			}),
		},
		{
			Name:        "list_claimable_rounds",
			Description: "List pending rounds the calling operator may start",
			InputSchema: objectSchema(map[string]any{}),
			ReadOnly:    true,
		},
		{
			Name:        "get_round",
			Description: "Get a round and, once started, its progress",
			InputSchema: objectSchema(map[string]any{
				"round_id": stringProp("Round ID"),
			}, "round_id"),
			ReadOnly: true,
		},
		{
			Name:        "start_round",
			Description: "Claim and activate a pending round. Vehicle modes need vehicle_id, start_odometer and start_odometer_photo",
			InputSchema: objectSchema(map[string]any{
				"round_id":             stringProp("Round ID"),
				"vehicle_mode":         enumProp("How the operator travels", "car", "motorcycle", "on_foot"),
				"vehicle_id":           stringProp("Vehicle ID"),
				"start_odometer":       numberProp("Odometer reading at start"),
				"start_odometer_photo": stringProp("Evidence reference from request_upload"),
				"start_location":       pointProp("Operator position at start"),
			}, "round_id", "vehicle_mode"),
		},
		{
			Name:        "complete_round",
			Description: "Complete an active round once every in-scope checkpoint has a visit",
			InputSchema: objectSchema(map[string]any{
				"round_id":     stringProp("Round ID"),
				"end_odometer": numberProp("Odometer reading at end, not below the start reading"),
				"end_location": pointProp("Operator position at end"),
			}, "round_id"),
		},
		{
			Name:        "escalate_round",
			Description: "Move an active round to incident. Visits continue to be accepted",
			InputSchema: objectSchema(map[string]any{
				"round_id": stringProp("Round ID"),
				"reason":   stringProp("Why the round was escalated"),
			}, "round_id"),
		},
		{
			Name:        "resume_round",
			Description: "Move a round under incident back to active",
			InputSchema: objectSchema(map[string]any{
				"round_id": stringProp("Round ID"),
			}, "round_id"),
		},

		// Visits
		{
			Name:        "record_visit",
			Description: "Record a visit to a checkpoint by ID. Re-visits return duplicate=true and change nothing",
			InputSchema: objectSchema(map[string]any{
				"round_id":      stringProp("Round ID"),
				"checkpoint_id": stringProp("Checkpoint ID"),
				"source":        enumProp("How the checkpoint was identified", "scan", "manual"),
				"photo_ref":     stringProp("Evidence reference from request_upload"),
				"location":      pointProp("Operator position"),
			}, "round_id", "checkpoint_id"),
		},
		{
			Name:        "record_visit_by_code",
			Description: "Resolve a scanned or typed 9-digit code and record the visit",
			InputSchema: objectSchema(map[string]any{
				"round_id":  stringProp("Round ID"),
				"code":      stringProp("Checkpoint code"),
				"source":    enumProp("Capture path", "scan", "manual"),
				"photo_ref": stringProp("Evidence reference from request_upload"),
				"location":  pointProp("Operator position"),
			}, "round_id", "code"),
		},
		{
			Name:        "list_visits",
			Description: "List a round's visits in order",
			InputSchema: objectSchema(map[string]any{
				"round_id": stringProp("Round ID"),
			}, "round_id"),
			ReadOnly: true,
		},
		{
			Name:        "get_round_progress",
			Description: "Get per-client checkpoint completion for a round",
			InputSchema: objectSchema(map[string]any{
				"round_id": stringProp("Round ID"),
			}, "round_id"),
			ReadOnly: true,
		},
		{
			Name:        "decode_checkpoint_image",
			Description: "Read a QR code from a base64 PNG/JPEG frame and resolve its checkpoint",
			InputSchema: objectSchema(map[string]any{
				"image": stringProp("Base64-encoded image"),
			}, "image"),
			ReadOnly: true,
		},

		// Incidents
		{
			Name:        "report_incident",
			Description: "Report an incident, optionally linked to a round. The round's status is not changed",
			InputSchema: objectSchema(map[string]any{
				"round_id":    stringProp("Linked round ID"),
				"client_id":   stringProp("Client ID (defaults to an ad hoc round's client)"),
				"severity":    enumProp("Severity", "low", "medium", "high", "critical"),
				"description": stringProp("What happened"),
				"location":    pointProp("Where it happened"),
				"photo_ref":   stringProp("Evidence reference from request_upload"),
			}, "severity", "description"),
		},
		{
			Name:        "update_incident_status",
			Description: "Move an incident to investigating or resolved",
			InputSchema: objectSchema(map[string]any{
				"id":     stringProp("Incident ID"),
				"status": enumProp("Target status", "investigating", "resolved"),
			}, "id", "status"),
		},
		{
			Name:        "list_incidents",
			Description: "List incidents linked to a round",
			InputSchema: objectSchema(map[string]any{
				"round_id": stringProp("Round ID"),
			}, "round_id"),
			ReadOnly: true,
		},

		// History and evidence
		{
			Name:        "get_round_activity",
			Description: "Get a round's audit trail, newest first",
			InputSchema: objectSchema(map[string]any{
				"round_id": stringProp("Round ID"),
				"limit":    map[string]any{"type": "integer", "description": "Maximum number of entries"},
			}, "round_id"),
			ReadOnly: true,
		},
		{
			Name:        "list_activity",
			Description: "List the tenant's recent activity across rounds, newest first, optionally for one operator or event type",
			InputSchema: objectSchema(map[string]any{
				"operator_id": stringProp("Only entries by this operator"),
				"type": enumProp("Only entries of this type",
					"round_created", "round_started", "round_completed", "round_escalated", "round_resumed",
					"visit_recorded", "incident_reported", "incident_updated", "checkpoint_deactivated"),
				"limit":  map[string]any{"type": "integer", "description": "Maximum number of entries (at most 200)"},
				"offset": map[string]any{"type": "integer", "description": "Entries to skip"},
			}),
			ReadOnly: true,
		},
		{
			Name:        "request_upload",
			Description: "Get a presigned URL for uploading a photo and the reference to attach to a round, visit or incident",
			InputSchema: objectSchema(map[string]any{
				"kind":         enumProp("What the photo proves", "odometer", "checkpoint", "incident"),
				"content_type": enumProp("Image type", "image/jpeg", "image/png", "image/webp"),
			}, "kind", "content_type"),
		},
		{
			Name:        "get_evidence_url",
			Description: "Get a short-lived download URL for an evidence reference",
			InputSchema: objectSchema(map[string]any{
				"ref": stringProp("Evidence reference"),
			}, "ref"),
			ReadOnly: true,
		},
	}
}
