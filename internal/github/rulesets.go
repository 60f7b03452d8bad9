package github

import (
	"context"
	"encoding/json"
	"fmt"
)

// RepositoryNameCondition is the include/exclude pattern pair on an
// organization ruleset's repository_name condition.
type RepositoryNameCondition struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

// RulesetConditions is an organization ruleset's full condition object. The
// rulesets endpoint only supports whole-object writes, so conditions the
// pipeline does not own (ref_name and anything added later) round-trip as
// raw JSON to be preserved on write-back.
type RulesetConditions struct {
	RepositoryName *RepositoryNameCondition `json:"repository_name,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type rulesetConditionsWire struct {
	RepositoryName *RepositoryNameCondition `json:"repository_name,omitempty"`
}

func (rc *RulesetConditions) UnmarshalJSON(data []byte) error {
	var wire rulesetConditionsWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "repository_name")

	rc.RepositoryName = wire.RepositoryName
	rc.Extra = raw
	return nil
}

func (rc RulesetConditions) MarshalJSON() ([]byte, error) {
	merged := make(map[string]json.RawMessage, len(rc.Extra)+1)
	for k, v := range rc.Extra {
		merged[k] = v
	}
	if rc.RepositoryName != nil {
		b, err := json.Marshal(rc.RepositoryName)
		if err != nil {
			return nil, err
		}
		merged["repository_name"] = b
	}
	return json.Marshal(merged)
}

// OrgRuleset is the subset of an organization ruleset the pipeline reads.
type OrgRuleset struct {
	ID         int64              `json:"id"`
	Name       string             `json:"name"`
	Conditions *RulesetConditions `json:"conditions,omitempty"`
}

// ListOrgRulesets lists the organization's rulesets. The list endpoint
// returns rulesets without their condition objects; use GetOrgRuleset for
// the full object.
func (c *Client) ListOrgRulesets(ctx context.Context, org string) ([]*OrgRuleset, error) {
	u := fmt.Sprintf("orgs/%s/rulesets", org)

	req, err := c.rest.NewRequest("GET", u, nil)
	if err != nil {
		return nil, WrapError(err, "ListOrgRulesets", c.baseURL)
	}

	var rulesets []*OrgRuleset
	if _, err := c.rest.Do(ctx, req, &rulesets); err != nil {
		return nil, WrapError(err, "ListOrgRulesets", c.baseURL)
	}

	c.logger.Debug("Organization rulesets listed", "org", org, "count", len(rulesets))
	return rulesets, nil
}

// GetOrgRuleset fetches one ruleset including its full condition object.
func (c *Client) GetOrgRuleset(ctx context.Context, org string, id int64) (*OrgRuleset, error) {
	u := fmt.Sprintf("orgs/%s/rulesets/%d", org, id)

	req, err := c.rest.NewRequest("GET", u, nil)
	if err != nil {
		return nil, WrapError(err, "GetOrgRuleset", c.baseURL)
	}

	ruleset := new(OrgRuleset)
	if _, err := c.rest.Do(ctx, req, ruleset); err != nil {
		return nil, WrapError(err, "GetOrgRuleset", c.baseURL)
	}

	return ruleset, nil
}

// UpdateOrgRulesetConditions writes a ruleset's condition object back. Only
// the conditions are sent; the ruleset's rules, enforcement and bypass
// actors are left untouched.
func (c *Client) UpdateOrgRulesetConditions(ctx context.Context, org string, id int64, conditions *RulesetConditions) error {
	u := fmt.Sprintf("orgs/%s/rulesets/%d", org, id)
	body := struct {
		Conditions *RulesetConditions `json:"conditions"`
	}{Conditions: conditions}

	req, err := c.rest.NewRequest("PUT", u, body)
	if err != nil {
		return WrapError(err, "UpdateOrgRulesetConditions", c.baseURL)
	}
	if _, err := c.rest.Do(ctx, req, nil); err != nil {
		return WrapError(err, "UpdateOrgRulesetConditions", c.baseURL)
	}

	c.logger.Info("Organization ruleset conditions updated", "org", org, "ruleset_id", id)
	return nil
}
