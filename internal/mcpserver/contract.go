package mcpserver

// FormatContract describes the .faf structure that LLM consumers should
// follow when editing the context file.
const FormatContract = `# .faf Format Contract

The project context lives in ` + "`project.faf`" + ` (legacy name: ` + "`.faf`" + `), a YAML
mapping. ` + "`CLAUDE.md`" + ` is generated from it and kept in sync.

## Scored slots (21)

| Section | Slots |
|---|---|
| project | name, goal, main_language, type |
| human_context | who, what, why, where, when, how |
| stack | frontend, ui_library, backend, runtime, database, build, package_manager, api_type, hosting, cicd, css_framework |

A slot is **filled** by any non-empty value (including 0 and false), **ignored**
when set to a sentinel (None, Unknown, Not specified, N/A, slotignored) and
**missing** otherwise. Ignored slots count towards the score.

## Rules

1. ` + "`project.name`" + ` and ` + "`project.goal`" + ` are required.
2. Sections are mappings; do not turn ` + "`stack`" + ` into a list.
3. Use a sentinel instead of deleting a slot that does not apply.
4. Unknown top-level keys are kept verbatim by every sync.
5. Do not hand-edit ` + "`scores`" + `; run ` + "`faf score --write`" + `.

## Example

` + "```" + `yaml
faf_version: 2.5.0
project:
  name: billing-api
  goal: Issue and reconcile invoices
  main_language: Go
  type: service
human_context:
  who: finance team
  why: replace spreadsheet workflow
stack:
  frontend: None
  backend: chi
  database: PostgreSQL
` + "```" + `
`
