package gh

import (
	"context"
	"fmt"

	"github.com/machinebox/graphql"
	"github.com/h0rv/ghcord/internal/domain"
)

// FetchRepos returns every repository in the organization.
func (c *Client) FetchRepos(ctx context.Context) ([]domain.Repo, error) {
	var repos []domain.Repo
	cursor := ""

	for {
		req := graphql.NewRequest(`
			query($org: String!, $after: String) {
				organization(login: $org) {
					repositories(first: 100, after: $after) {
						pageInfo {
							hasNextPage
							endCursor
						}
						nodes {
							name
							nameWithOwner
						}
					}
				}
			}
		`)
		req.Var("org", c.org)
		if cursor != "" {
			req.Var("after", cursor)
		} else {
			req.Var("after", nil)
		}

		var resp struct {
			Organization struct {
				Repositories struct {
					PageInfo struct {
						HasNextPage bool   `json:"hasNextPage"`
						EndCursor   string `json:"endCursor"`
					} `json:"pageInfo"`
					Nodes []struct {
						Name          string `json:"name"`
						NameWithOwner string `json:"nameWithOwner"`
					} `json:"nodes"`
				} `json:"repositories"`
			} `json:"organization"`
		}

		if err := c.run(ctx, req, &resp); err != nil {
			return nil, fmt.Errorf("failed to fetch repositories: %w", err)
		}

		for _, node := range resp.Organization.Repositories.Nodes {
			repos = append(repos, domain.Repo{
				Name:     node.Name,
				FullName: node.NameWithOwner,
			})
		}

		if !resp.Organization.Repositories.PageInfo.HasNextPage {
			return repos, nil
		}
		cursor = resp.Organization.Repositories.PageInfo.EndCursor
	}
}

// FetchPeople returns the organization's members merged with its outside
// collaborators. Member entries win on login conflict.
func (c *Client) FetchPeople(ctx context.Context) ([]domain.Person, error) {
	members, err := c.fetchMembers(ctx)
	if err != nil {
		return nil, err
	}

	byLogin := make(map[string]domain.Person, len(members))
	order := make([]string, 0, len(members))
	for _, m := range members {
		if _, seen := byLogin[m.Login]; !seen {
			order = append(order, m.Login)
		}
		byLogin[m.Login] = m
	}

	// Outside collaborators are only reachable via REST and may need a
	// broader scope; a failure leaves members as the people set.
	outside, err := c.fetchOutsideCollaborators(ctx)
	if err != nil {
		c.log.Warn("failed to fetch outside collaborators", "err", err)
	}
	for _, o := range outside {
		if _, seen := byLogin[o.Login]; !seen {
			byLogin[o.Login] = o
			order = append(order, o.Login)
		}
	}

	people := make([]domain.Person, 0, len(order))
	for _, login := range order {
		people = append(people, byLogin[login])
	}
	return people, nil
}

func (c *Client) fetchMembers(ctx context.Context) ([]domain.Person, error) {
	var people []domain.Person
	cursor := ""

	for {
		req := graphql.NewRequest(`
			query($org: String!, $after: String) {
				organization(login: $org) {
					membersWithRole(first: 100, after: $after) {
						pageInfo {
							hasNextPage
							endCursor
						}
						nodes {
							login
							avatarUrl
						}
					}
				}
			}
		`)
		req.Var("org", c.org)
		if cursor != "" {
			req.Var("after", cursor)
		} else {
			req.Var("after", nil)
		}

		var resp struct {
			Organization struct {
				MembersWithRole struct {
					PageInfo struct {
						HasNextPage bool   `json:"hasNextPage"`
						EndCursor   string `json:"endCursor"`
					} `json:"pageInfo"`
					Nodes []struct {
						Login     string `json:"login"`
						AvatarURL string `json:"avatarUrl"`
					} `json:"nodes"`
				} `json:"membersWithRole"`
			} `json:"organization"`
		}

		if err := c.run(ctx, req, &resp); err != nil {
			return nil, fmt.Errorf("failed to fetch members: %w", err)
		}

		for _, node := range resp.Organization.MembersWithRole.Nodes {
			people = append(people, domain.Person{
				Login:     node.Login,
				AvatarURL: node.AvatarURL,
			})
		}

		if !resp.Organization.MembersWithRole.PageInfo.HasNextPage {
			return people, nil
		}
		cursor = resp.Organization.MembersWithRole.PageInfo.EndCursor
	}
}

// FetchProjects returns the organization's Projects v2 with their field
// definitions (single-select options and iteration configurations merged
// into one option map) and a bounded first page of items projected to
// lightweight records.
func (c *Client) FetchProjects(ctx context.Context) ([]domain.Project, error) {
	req := graphql.NewRequest(`
		query($org: String!) {
			organization(login: $org) {
				projectsV2(first: 20) {
					nodes {
						id
						title
						url
						number
						fields(first: 20) {
							nodes {
								... on ProjectV2FieldCommon {
									id
									name
									dataType
								}
								... on ProjectV2SingleSelectField {
									id
									name
									dataType
									options {
										id
										name
									}
								}
								... on ProjectV2IterationField {
									id
									name
									dataType
									configuration {
										iterations {
											id
											title
										}
									}
								}
							}
						}
						items(first: 50) {
							nodes {
								content {
									... on Issue {
										title
										number
										state
										repository {
											name
										}
									}
									... on PullRequest {
										title
										number
										state
										repository {
											name
										}
									}
								}
							}
						}
					}
				}
			}
		}
	`)
	req.Var("org", c.org)

	var resp struct {
		Organization struct {
			ProjectsV2 struct {
				Nodes []struct {
					ID     string `json:"id"`
					Title  string `json:"title"`
					URL    string `json:"url"`
					Number int    `json:"number"`
					Fields struct {
						Nodes []struct {
							ID       string `json:"id"`
							Name     string `json:"name"`
							DataType string `json:"dataType"`
							Options  []struct {
								ID   string `json:"id"`
								Name string `json:"name"`
							} `json:"options"`
							Configuration *struct {
								Iterations []struct {
									ID    string `json:"id"`
									Title string `json:"title"`
								} `json:"iterations"`
							} `json:"configuration"`
						} `json:"nodes"`
					} `json:"fields"`
					Items struct {
						Nodes []struct {
							Content *struct {
								Title      string `json:"title"`
								Number     int    `json:"number"`
								State      string `json:"state"`
								Repository *struct {
									Name string `json:"name"`
								} `json:"repository"`
							} `json:"content"`
						} `json:"nodes"`
					} `json:"items"`
				} `json:"nodes"`
			} `json:"projectsV2"`
		} `json:"organization"`
	}

	if err := c.run(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}

	projects := make([]domain.Project, 0, len(resp.Organization.ProjectsV2.Nodes))
	for _, node := range resp.Organization.ProjectsV2.Nodes {
		project := domain.Project{
			ID:     node.ID,
			Title:  node.Title,
			URL:    node.URL,
			Number: node.Number,
		}

		for _, f := range node.Fields.Nodes {
			field := domain.Field{
				ID:       f.ID,
				Name:     f.Name,
				DataType: f.DataType,
				Options:  make(map[string]string),
			}
			for _, opt := range f.Options {
				field.Options[opt.Name] = opt.ID
			}
			// Iterations behave like select options downstream.
			if f.Configuration != nil {
				for _, iter := range f.Configuration.Iterations {
					field.Options[iter.Title] = iter.ID
				}
			}
			project.Fields = append(project.Fields, field)
		}

		for _, item := range node.Items.Nodes {
			// Draft issues have no number or repository; they are not
			// addressable by the edit workflows and are skipped here.
			if item.Content == nil || item.Content.Number == 0 || item.Content.Repository == nil {
				continue
			}
			state := item.Content.State
			if state == "" {
				state = "OPEN"
			}
			project.Records = append(project.Records, domain.Record{
				Title:  item.Content.Title,
				Number: item.Content.Number,
				Repo:   item.Content.Repository.Name,
				State:  state,
			})
		}

		projects = append(projects, project)
	}

	return projects, nil
}

// FindItem locates a project item by issue/PR number and returns its node ID
// along with the item's current field values keyed by field name.
func (c *Client) FindItem(ctx context.Context, projectID string, number int) (domain.ItemRef, error) {
	req := graphql.NewRequest(`
		query($id: ID!) {
			node(id: $id) {
				... on ProjectV2 {
					items(first: 100) {
						nodes {
							id
							content {
								... on Issue {
									number
									title
								}
								... on PullRequest {
									number
									title
								}
							}
							fieldValues(first: 20) {
								nodes {
									... on ProjectV2ItemFieldTextValue {
										text
										field { ... on ProjectV2FieldCommon { name } }
									}
									... on ProjectV2ItemFieldDateValue {
										date
										field { ... on ProjectV2FieldCommon { name } }
									}
									... on ProjectV2ItemFieldSingleSelectValue {
										name
										field { ... on ProjectV2FieldCommon { name } }
									}
									... on ProjectV2ItemFieldNumberValue {
										number
										field { ... on ProjectV2FieldCommon { name } }
									}
									... on ProjectV2ItemFieldIterationValue {
										title
										field { ... on ProjectV2FieldCommon { name } }
									}
								}
							}
						}
					}
				}
			}
		}
	`)
	req.Var("id", projectID)

	var resp struct {
		Node struct {
			Items struct {
				Nodes []struct {
					ID      string `json:"id"`
					Content *struct {
						Number int    `json:"number"`
						Title  string `json:"title"`
					} `json:"content"`
					FieldValues struct {
						Nodes []struct {
							Text   *string  `json:"text"`
							Date   *string  `json:"date"`
							Name   *string  `json:"name"`
							Number *float64 `json:"number"`
							Title  *string  `json:"title"`
							Field  *struct {
								Name string `json:"name"`
							} `json:"field"`
						} `json:"nodes"`
					} `json:"fieldValues"`
				} `json:"nodes"`
			} `json:"items"`
		} `json:"node"`
	}

	if err := c.run(ctx, req, &resp); err != nil {
		return domain.ItemRef{}, fmt.Errorf("failed to find item #%d: %w", number, err)
	}

	for _, item := range resp.Node.Items.Nodes {
		if item.Content == nil || item.Content.Number != number {
			continue
		}

		ref := domain.ItemRef{
			ID:     item.ID,
			Title:  item.Content.Title,
			Values: make(map[string]string),
		}
		for _, fv := range item.FieldValues.Nodes {
			if fv.Field == nil {
				continue
			}
			switch {
			case fv.Text != nil:
				ref.Values[fv.Field.Name] = *fv.Text
			case fv.Name != nil:
				ref.Values[fv.Field.Name] = *fv.Name
			case fv.Date != nil:
				ref.Values[fv.Field.Name] = *fv.Date
			case fv.Number != nil:
				ref.Values[fv.Field.Name] = fmt.Sprintf("%g", *fv.Number)
			case fv.Title != nil:
				ref.Values[fv.Field.Name] = *fv.Title
			}
		}
		return ref, nil
	}

	return domain.ItemRef{}, fmt.Errorf("item #%d not found in project (checked first 100 items)", number)
}
