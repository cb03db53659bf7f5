package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// maxPriorAttempts limits how many earlier failures are repeated in a
// repair prompt besides the latest one.
const maxPriorAttempts = 3

// BuildRepairPrompt asks for a corrected query given the failing candidate
// and the execution feedback. The schema excerpt covers the linked tables
// unless the failure was about schema names.
func BuildRepairPrompt(rc *models.RepairContext) string {
	var prompt strings.Builder
	latest, _ := rc.Latest()
	dialect := rc.Descriptor.Dialect

	prompt.WriteString("# Query Repair\n\n")
	prompt.WriteString(fmt.Sprintf("The %s query below failed. Write a corrected query.\n\n", dialectName(dialect)))

	prompt.WriteString("## Schema\n\n")
	prompt.WriteString(FormatSchema(rc.Descriptor, repairFocus(rc)))
	prompt.WriteString("\n\n")

	prompt.WriteString("## Question\n\n")
	prompt.WriteString(string(rc.Question))
	prompt.WriteString("\n\n")
	prompt.WriteString(FormatLinkSet(rc.LinkSet))
	prompt.WriteString("\n\n")

	prompt.WriteString(fmt.Sprintf("## Failed Query (attempt %d)\n\n", latest.Candidate.Iteration+1))
	if latest.Candidate.Sentinel {
		prompt.WriteString("(no query was produced)\n\n")
	} else {
		prompt.WriteString(fmt.Sprintf("```%s\n%s\n```\n\n", FenceTag(dialect), latest.Candidate.Text))
	}

	prompt.WriteString("## Error\n\n")
	prompt.WriteString(fmt.Sprintf("%s: %s\n\n", latest.Result.ErrorClass, latest.Result.ErrorDetail))
	prompt.WriteString(repairHint(latest.Result.ErrorClass, dialect))
	prompt.WriteString("\n\n")

	if prior := priorAttempts(rc); len(prior) > 0 {
		prompt.WriteString("## Earlier Attempts\n\n")
		for _, a := range prior {
			text := a.Candidate.Text
			if a.Candidate.Sentinel {
				text = "(no query)"
			}
			prompt.WriteString(fmt.Sprintf("- attempt %d: `%s` -> %s\n",
				a.Candidate.Iteration+1, strings.Join(strings.Fields(text), " "), a.Result.ErrorClass))
		}
		prompt.WriteString("Do not repeat these.\n\n")
	}

	writeAnswerFormat(&prompt, dialect)
	return prompt.String()
}

func priorAttempts(rc *models.RepairContext) []models.Attempt {
	if len(rc.Attempts) <= 1 {
		return nil
	}
	prior := rc.Attempts[:len(rc.Attempts)-1]
	if len(prior) > maxPriorAttempts {
		prior = prior[len(prior)-maxPriorAttempts:]
	}
	return prior
}

// repairFocus is empty (whole schema) when the links are empty or the
// failure was about schema names.
func repairFocus(rc *models.RepairContext) []string {
	latest, _ := rc.Latest()
	if rc.LinkSet.IsEmpty() || latest.Result.ErrorClass == apperrors.KindUnknownSchemaElement {
		return nil
	}
	return rc.LinkSet.Tables()
}

func repairHint(kind apperrors.ErrorKind, dialect models.Dialect) string {
	switch kind {
	case apperrors.KindUnknownSchemaElement:
		return "The query names something that does not exist in this schema. Replace it with an element from the schema above."
	case apperrors.KindQuerySyntaxError:
		return fmt.Sprintf("The query is not valid %s. Fix the syntax and keep it to a single statement.", dialectName(dialect))
	case apperrors.KindNoQueryProduced:
		return fmt.Sprintf("The previous response contained no ```%s code block.", FenceTag(dialect))
	case apperrors.KindTimeout:
		return "The query ran past its time limit. Filter earlier and avoid unbounded traversals or cross joins."
	case apperrors.KindProviderError:
		return "The previous generation call failed. Produce the query again."
	default:
		return "The store rejected the query. Only read queries are allowed; check types and join conditions."
	}
}
