package models

const (
	ContextSeparator = "\n"
	WebNotice        = "🔍 *Buscando en la web...*\n\n"
)

var (
	ReformulatePrompt = `Dado un historial de chat y la última pregunta del usuario que podría hacer referencia al contexto del historial, formula una pregunta independiente que pueda entenderse sin el historial. NO respondas a la pregunta, solo reformúlala si es necesario o devuélvela tal cual.`

	SufficiencyPrompt = `Analiza si el siguiente contexto contiene información suficiente para responder la pregunta.
Responde únicamente con "SI" o "NO".

<context>
%s
</context>

Pregunta: %s`

	DocumentsPrompt = `Eres un asistente experto. Usa los siguientes fragmentos de contexto recuperado para responder la pregunta. Si no sabes la respuesta, di que no lo sabes. Usa formato Markdown para estructurar tu respuesta (listas, negritas, etc).

<context>
%s
</context>`

	DocumentsWebPrompt = `Eres un asistente experto. Los documentos del usuario no bastan para responder, así que también tienes resultados de una búsqueda web. Responde combinando ambas fuentes y cita las fuentes web cuando sea posible. Usa formato Markdown para estructurar tu respuesta (listas, negritas, etc).

<documents>
%s
</documents>

<search_results>
%s
</search_results>`

	WebPrompt = `Eres un asistente experto. Responde la pregunta usando los siguientes resultados de búsqueda web y cita las fuentes cuando sea posible. Usa formato Markdown para estructurar tu respuesta (listas, negritas, etc).

<search_results>
%s
</search_results>`

	GeneralPrompt = `Eres un asistente conversacional amable y experto. Responde la pregunta con tu conocimiento general. Usa formato Markdown para estructurar tu respuesta (listas, negritas, etc).`

	ImagePrompt = `Describe esta imagen en detalle. Si contiene texto, extráelo completo. Usa formato Markdown para estructurar tu respuesta (listas, negritas, etc).`
)

// MarkdownDirective appears in every answer prompt.
const MarkdownDirective = "Usa formato Markdown para estructurar tu respuesta (listas, negritas, etc)."
