package app

import (
	"strings"

	"litqa/internal/pkg/answerfmt"
)

const (
	MainAnswerPlaceholder   = "Sorry, an answer is not available right now."
	DeepAnalysisPlaceholder = "Sorry, deep analysis is not available right now."
	CodeSolutionPlaceholder = "Sorry, code generation is not available right now."
)

const assistantPersona = "You are a professional research assistant. Answer the user's question based on the provided literature."

func deepAnalysisPrompt(in StageInput) string {
	var b strings.Builder
	b.WriteString("Analyze the following question in depth and show your reasoning.\n\n")
	b.WriteString("Question: ")
	b.WriteString(in.Question)
	b.WriteString("\n\nUse exactly this structure:\n\n")
	for i, title := range answerfmt.DeepAnalysisSections {
		b.WriteString(title)
		b.WriteString("\n")
		b.WriteString(deepAnalysisHints[i])
		b.WriteString("\n\n")
	}
	b.WriteString("Make the analysis thorough and concrete.")
	return b.String()
}

var deepAnalysisHints = []string{
	"[The core of the problem and its key points]",
	"[The knowledge areas needed to solve it]",
	"[Possible approaches and steps]",
	"[Important findings and insights]",
}

func mainAnswerPrompt(in StageInput) string {
	var b strings.Builder
	b.WriteString(assistantPersona)
	if in.Context != nil && !in.Context.Empty() {
		b.WriteString("\n\n## Reference Documents\n")
		b.WriteString(in.Context.Text)
	} else {
		b.WriteString("\n\nNo documents are available, answer from your own knowledge.")
	}
	b.WriteString("\n\n## Question\n")
	b.WriteString(in.Question)
	b.WriteString("\n\n## Requirements\n")
	b.WriteString("- Give a detailed and accurate answer\n")
	b.WriteString("- Cite every document you use as [documentName]\n")
	b.WriteString("- Keep the structure clear and easy to follow")
	return b.String()
}

func singleDocumentPrompt(in StageInput) string {
	var b strings.Builder
	b.WriteString(assistantPersona)
	b.WriteString(" If the document does not contain the information, say so.\n\n")
	if in.Context != nil {
		b.WriteString(in.Context.Text)
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(in.Question)
	b.WriteString("\n\nGive a detailed answer and cite the source document as [documentName].")
	return b.String()
}

func codeSolutionPrompt(in StageInput) string {
	var b strings.Builder
	b.WriteString("Write a complete code solution for the following problem.\n\n")
	b.WriteString("Problem: ")
	b.WriteString(in.Question)
	b.WriteString("\n\n## Code Requirements\n")
	b.WriteString("- Complete, runnable code\n")
	b.WriteString("- Comments and explanations where needed\n")
	b.WriteString("- Handle edge cases and errors\n\n")
	b.WriteString("## Include\n")
	b.WriteString("1. Function or type definitions\n")
	b.WriteString("2. A usage example\n")
	b.WriteString("3. A short explanation\n\n")
	b.WriteString("Provide the implementation directly.")
	return b.String()
}
