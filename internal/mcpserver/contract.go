package mcpserver

// PromptFormatContract describes the two file formats promptbox accepts:
// single Markdown prompts and JSON export bundles.
const PromptFormatContract = `# promptbox Prompt Formats

## Markdown prompt (one prompt per file)

` + "```" + `markdown
---
tags: [writing, email]     # OPTIONAL - YAML list or "a, b" string; order and duplicates kept
folder: Work               # OPTIONAL - folder name; created when no folder has that name
favorite: true             # OPTIONAL - boolean, default false
---

The prompt text. Everything after the frontmatter is the text.
` + "```" + `

Rules:

1. The text must not be blank and is limited to the configured maximum
   length (10000 characters by default).
2. Folder names are unique ignoring case and surrounding spaces.
3. Invalid YAML frontmatter makes the whole file the prompt text.

## Export bundle (JSON)

` + "```" + `json
{
  "folders": [{"id": "f1", "name": "Work"}],
  "prompts": [{
    "id": "p1", "text": "Draft an email", "tags": ["email"], "favorite": false,
    "folderId": "f1", "createdAt": 1700000000000, "updatedAt": 1700000000000,
    "usageCount": 0
  }]
}
` + "```" + `

Both arrays are required. Every prompt needs string id and text; every folder
needs string id and name. Other prompt fields are optional and defaulted.
Importing by merge overwrites prompts and folders with the same id.
`
