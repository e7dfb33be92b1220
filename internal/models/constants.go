package models

// CollectionName is the single logical collection holding every document.
const CollectionName = "pdf_embeddings"

// Metadata keys written with every stored record.
const (
	MetaDocumentID     = "document_id"
	MetaRecordID       = "record_id"
	MetaPageNum        = "page_num"
	MetaType           = "type"
	MetaPositionX0     = "position_x0"
	MetaPositionY0     = "position_y0"
	MetaPositionX1     = "position_x1"
	MetaPositionY1     = "position_y1"
	MetaChunkID        = "chunk_id"
	MetaParagraphIndex = "paragraph_index"
	MetaLayout         = "layout"
	MetaIsFullPage     = "is_full_page"
	MetaHalf           = "half"
	MetaPreview        = "preview"
	MetaMimeType       = "mime_type"
	MetaChunkStart     = "chunk_start"
	MetaChunkEnd       = "chunk_end"
)

const (
	ImageSystemPrompt = "You are an AI assistant that describes images in detail."
	ImageUserPrompt   = "Please describe this image in detail."
	ImageDetail       = "high"

	AnswerSystemPrompt = "You are a helpful assistant that answers questions based on provided document context."

	NoInformationAnswer = "I couldn't find any relevant information to answer your question."
	NoDocumentsMessage  = "No PDF documents found in the database."
)

// AnswerPromptTemplate takes the question and the labelled context.
var AnswerPromptTemplate = `Based on the following information from a PDF document, please answer the query.

Query: %s

Document context:
%s

Please provide a comprehensive answer based only on the information provided above.
End your answer with:
1. A confidence score between 0 and 1 indicating how confident you are in your answer.
2. References to the specific pages from which you derived the answer.

Format your response like this:

[Your detailed answer here]

Confidence: [score between 0 and 1]

References: [list of page numbers used]
`
