package gh

import (
	"context"
	"fmt"

	"github.com/machinebox/graphql"
	"github.com/h0rv/ghcord/internal/domain"
)

// UpdateItemField sets one field value on a project item. The GraphQL input
// shape is selected by the payload kind.
func (c *Client) UpdateItemField(ctx context.Context, projectID, itemID, fieldID string, value domain.FieldValue) error {
	req := graphql.NewRequest(`
		mutation($projectId: ID!, $itemId: ID!, $fieldId: ID!, $value: ProjectV2FieldValue!) {
			updateProjectV2ItemFieldValue(
				input: {
					projectId: $projectId
					itemId: $itemId
					fieldId: $fieldId
					value: $value
				}
			) {
				projectV2Item {
					id
				}
			}
		}
	`)

	req.Var("projectId", projectID)
	req.Var("itemId", itemID)
	req.Var("fieldId", fieldID)
	req.Var("value", valueInput(value))

	var resp struct {
		UpdateProjectV2ItemFieldValue struct {
			ProjectV2Item struct {
				ID string `json:"id"`
			} `json:"projectV2Item"`
		} `json:"updateProjectV2ItemFieldValue"`
	}

	if err := c.run(ctx, req, &resp); err != nil {
		return fmt.Errorf("failed to update item field: %w", err)
	}

	return nil
}

// valueInput maps a FieldValue onto the ProjectV2FieldValue input object.
func valueInput(value domain.FieldValue) map[string]interface{} {
	switch value.Kind {
	case domain.ValueOption:
		return map[string]interface{}{"singleSelectOptionId": value.OptionID}
	case domain.ValueNumber:
		return map[string]interface{}{"number": value.Number}
	case domain.ValueDate:
		return map[string]interface{}{"date": value.Date}
	default:
		return map[string]interface{}{"text": value.Text}
	}
}
