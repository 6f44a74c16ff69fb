package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `blueprint edits a generated board of epics and user stories.

Core concepts:
- Project: epics in position order, each holding stories in position order. Generation runs on the server; status moves pending → generating → parsing → ready | failed.
- Snapshot: the locally cached project. Every change shows up here immediately and is rolled back if the server refuses it.
- Temporary id: a created epic or story carries "temp-..." until the server confirms it. Later calls may keep using the temporary id.
- Draft: the editable copy of one story's derived fields (assets, reasoning, meta). One draft is open per project.

Default workflow:
1) load_project(project_id) once, then get_project to read the cached snapshot.
2) Structure: create_epic / update_epic / delete_epic / create_story / update_story / delete_story.
3) Order: move_story with the dragged story and the story or epic it was dropped on.
4) Copy editing: open_story, then set_field / restore_field, then save_draft. restore_all resets the story to the AI original.
5) Generation failed? retry_generation.
6) recent_mutations shows what was committed or rolled back; export_csv dumps the board.

Docs:
- blueprint://docs/fields (asset keys and character limits)
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
		URI:         "blueprint://docs/fields",
		Name:        "fields",
		Title:       "Derived fields",
		Description: "Asset keys, reasoning keys and default character limits",
		Content: `# Derived fields

Each story carries derived fields in three buckets.

## assets

| key | default limit |
|---|---|
| hook | 125 |
| google_h1 | 30 |
| google_desc | 90 |
| meta_primary | 125 |
| lp_h1 | 60 |
| email_subject | 60 |
| cta | 25 |

Character counts are in Unicode code points. A story's own limits override the defaults.

## reasoning

proof and objection are always editable, plus any key the generator produced.

## meta

Free-form values. Keys starting with "_" are internal and never edited.

## Restoring

restore_field returns a field to the AI original, or to the last saved value when no original exists.
restore_all asks the server to reset the whole story.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
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
