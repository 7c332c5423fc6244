package mcpserver

// DocumentFormatContract describes the canonical Markdown document format
// that LLM consumers should follow when authoring vault documents.
const DocumentFormatContract = `# Gebo Document Format Contract

Every Markdown document stored in a Gebo vault MUST follow this structure.

## Structure

` + "```" + `markdown
---
type: note                          # REQUIRED – note, dashboard, template, documentation, system-design, canvas, code-snippet
title: Human-readable title         # REQUIRED – primary display name in the graph
tags:                               # REQUIRED – YAML list, lowercase kebab-case
  - tag-one
  - tag-two
created: 2025-01-15                 # REQUIRED – ISO-8601 date or datetime
updated: 2025-01-20                 # REQUIRED – ISO-8601 date or datetime
author: alice                       # REQUIRED
aliases:                            # OPTIONAL – alternate names for this document
  - Alt Name
requires:                           # OPTIONAL – ids this document depends on
  - concepts/base.md
template: templates/note.md         # OPTIONAL – template this document instantiates
---

Body text in standard Markdown.

Use [[wikilinks]] to reference other documents.
Use [[target|alias]] for display text that differs from the target.
` + "```" + `

## Rules

1. **YAML frontmatter is mandatory.** The ` + "```" + `---` + "```" + ` fences must be the first
   thing in the file (no leading blank lines).
2. **Required properties:** ` + "`" + `type` + "`" + `, ` + "`" + `title` + "`" + `, ` + "`" + `tags` + "`" + `, ` + "`" + `created` + "`" + `, ` + "`" + `updated` + "`" + `, ` + "`" + `author` + "`" + `.
   Missing any of them is a validation error.
3. **Tags** are lowercase kebab-case (e.g. ` + "`" + `project-x` + "`" + `, ` + "`" + `api-design` + "`" + `).
4. **Wikilinks** use double brackets: ` + "`" + `[[other-doc]]` + "`" + `. Path separators are OK:
   ` + "`" + `[[folder/doc]]` + "`" + `.
5. **Headings** form a proper hierarchy: exactly one top-level ` + "`" + `#` + "`" + ` heading,
   no level skips.
6. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
7. **Dashboards** must be kept fresh; a dashboard whose ` + "`" + `updated` + "`" + ` timestamp falls
   behind the configured maximum age is flagged stale.
8. **Dependencies** declared in ` + "`" + `requires` + "`" + ` must not form cycles.

## Example

` + "```" + `markdown
---
type: documentation
title: API Guide
tags:
  - api-design
  - reference
created: 2025-01-15
updated: 2025-01-20
author: alice
aliases:
  - API Reference
requires:
  - concepts/http.md
---

# API Guide

Start with the [[concepts/http]] primer, then read [[guides/auth|the auth guide]].
` + "```" + `
`
