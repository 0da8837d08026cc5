package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `patrol runs security patrol rounds: operators claim a round, visit every
checkpoint of the clients in scope, and complete the round.

Core concepts:
- Client: a site under patrol. Owns checkpoints.
- Checkpoint: a physical point with a unique 9-digit code (printed and encoded as QR).
- Template: an ordered list of clients. Never edited in place; copy_template makes a new one.
- Round: pending → active → completed, with active ⇄ incident. Created from a template or for one client.
- Visit: evidence that a checkpoint was reached during a round. At most one per checkpoint per round.

Workflow:
1) list_claimable_rounds, then start_round. Only one operator wins a claim; ALREADY_CLAIMED means pick another.
2) For vehicle modes, request_upload an odometer photo first and pass its ref as start_odometer_photo.
3) record_visit_by_code for each scanned or typed code. Re-scans return duplicate=true.
4) get_round_progress to see what is left.
5) complete_round. CHECKPOINTS_OUTSTANDING lists the clients still missing visits.
6) escalate_round / report_incident when something goes wrong; resume_round to continue.
7) get_round_activity for one round's history; list_activity for the tenant feed.

Identity:
- HTTP: Authorization: Bearer <api key>; the key identifies tenant and operator.
- Auth disabled / stdio: pass X-Operator-Id header or _meta.operator_id.

Docs:
- patrol://docs/index
- patrol://docs/rounds
- patrol://docs/errors
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "patrol://docs/index",
		Name:        "docs-index",
		Title:       "Patrol docs index",
		Description: "What to read when",
		Content: `# Patrol docs

- patrol://docs/rounds: round lifecycle, claiming and completion rules.
- patrol://docs/errors: stable error codes and how to recover.
`,
	},
	{
		URI:         "patrol://docs/rounds",
		Name:        "docs-rounds",
		Title:       "Round lifecycle",
		Description: "States, claiming, visits and completion",
		Content: `# Round lifecycle

## States

- pending: created, waiting to be claimed.
- active: claimed and started by exactly one operator.
- incident: escalated. Visits are still accepted.
- completed: terminal.

Allowed moves: pending → active (start_round), active → completed,
active → incident, incident → active. Nothing leaves completed.

## Claiming

start_round claims and activates in one step. A round pre-assigned to an
operator can only be claimed by that operator. Losing a race returns
ALREADY_CLAIMED; retrying the same round is pointless.

Vehicle modes (car, motorcycle) need vehicle_id, start_odometer and an
odometer photo. on_foot needs none of these.

## Visits

A visit is keyed by (round, checkpoint). Recording the same checkpoint
again returns the original visit with duplicate=true. Checkpoints of
clients outside the round's scope are rejected with OUT_OF_SCOPE.

## Completion

complete_round re-derives progress from stored visits. Every client in
scope must have each active checkpoint visited. Vehicle rounds need an
end_odometer not below the start reading.
`,
	},
	{
		URI:         "patrol://docs/errors",
		Name:        "docs-errors",
		Title:       "Error codes",
		Description: "Stable error codes returned by tools",
		Content: `# Error codes

- MALFORMED_CODE: the code is not exactly 9 digits. Nothing was looked up.
- CHECKPOINT_NOT_FOUND: no active checkpoint has the code or id.
- AMBIGUOUS_CODE: more than one active checkpoint has the code.
- ALREADY_CLAIMED: another operator holds the round.
- NOT_PENDING: the round was already started.
- ILLEGAL_TRANSITION: the lifecycle does not allow the move.
- NOT_ASSIGNED_OPERATOR: only the claimant may change the round.
- CHECKPOINTS_OUTSTANDING: details list remaining checkpoints per client.
- OUT_OF_SCOPE: the checkpoint's client is not covered by the round.
- ROUND_NOT_ACTIVE: the round does not accept visits.
- DEVICE_UNAVAILABLE: the camera failed; details carry the reason. Enter the code manually.
- VALIDATION_FAILED: details list field-level reasons.
- CONFLICT: the round changed while you were editing it. Reload and retry.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
