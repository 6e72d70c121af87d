package prompting

const DefaultSystemPrompt = "You are a document analysis assistant. Analyze documents and extract metadata in a structured format."

const jsonOnlySuffix = "\n\nRespond with valid JSON only."

const visionSystemSuffix = `

You will receive a document image. IMPORTANT: Your response must contain two parts:
1. EXTRACTED_TEXT: The complete text you extracted from the document via OCR
2. ANALYSIS: The structured analysis according to the format below

Format your response exactly like this:

EXTRACTED_TEXT:
[Put the complete extracted text here]

ANALYSIS:
[Put your structured analysis here in the requested format]`

const visionUserPrefix = `Please perform OCR on this document image, extract ALL text completely, and then analyze it.

IMPORTANT: First extract the complete text from the document, then analyze it according to the instructions below.

`

// DefaultTemplate is used when neither modular fields nor a custom template are configured.
const DefaultTemplate = `Analyze the following document and provide structured metadata.

**Available Correspondents in Paperless-NGX:**
{available_correspondents}

**Available Document Types in Paperless-NGX:**
{available_document_types}

**Available Tags in Paperless-NGX:**
{available_tags}

**Please provide:**

1. **Document Date**: When was this document created or issued? (format: YYYY-MM-DD, e.g., 2024-03-15)
2. **Correspondent**: Who is this document from/to? (company, person, or organization name)
   - If possible, use one of the available correspondents listed above
   - Only create a new correspondent name if the document is from someone not in the list
3. **Document Type**: What type of document is this?
   - If possible, use one of the available document types listed above
   - Only create a new document type if none of the existing ones match
4. **Content Keywords**: 1-3 keywords describing WHAT the document is about (max 3 words)
   - DO NOT repeat the document type in keywords
   - Describe the CONTENT/PURPOSE, not the type
5. **Suggested Title**: Create a title in this exact format: YYYY-MM-DD - Correspondent - Document Type - Content Keywords
   Example: "2025-07-09 - Energy Solutions Ltd - Invoice - Solar Panel Storage"
6. **Suggested Tags**: 3-5 relevant tags that would help categorize this document
   - Prefer using existing tags from the list above when they match the document content
   - Only suggest new tags if none of the existing tags are appropriate`

const visionTemplate = `**Available Correspondents in Paperless-NGX:**
{available_correspondents}

**Available Document Types in Paperless-NGX:**
{available_document_types}

**Available Tags in Paperless-NGX:**
{available_tags}

**Please provide:**

1. **Document Date**: When was this document created or issued? (format: YYYY-MM-DD)
2. **Correspondent**: Who is this document from/to? (prefer existing correspondents if matching)
3. **Document Type**: What type of document is this? (prefer existing types if matching)
4. **Content Keywords**: 1-3 keywords describing WHAT the document is about (not the type)
5. **Suggested Title**: Create a title in format: YYYY-MM-DD - Correspondent - Document Type - Content Keywords
6. **Suggested Tags**: 3-5 relevant tags (prefer existing tags when appropriate)`

const lineFormatTrailer = `Please format your response as follows:

DATE: [document date in YYYY-MM-DD format]
CORRESPONDENT: [sender/recipient name]
TYPE: [document type]
KEYWORDS: [keyword1, keyword2, keyword3]
TITLE: [YYYY-MM-DD - Correspondent - Type - Keywords]
TAGS: [tag1, tag2, tag3, ...]
`
