package model

type NotificationChannelForm struct {
	OrgID    uint64        `json:"org_id,omitempty"`
	TeamID   uint64        `json:"team_id,omitempty"`
	Name     string        `json:"name,omitempty" minLength:"1"`
	Type     ChannelType   `json:"type,omitempty"`
	Config   ChannelConfig `json:"config,omitempty"`
	IsActive *bool         `json:"is_active,omitempty" validate:"optional"`
}

func (nf *NotificationChannelForm) Apply(n *NotificationChannel) {
	isNew := n.ID == 0
	n.OrgID = nf.OrgID
	n.TeamID = nf.TeamID
	n.Name = nf.Name
	n.Type = nf.Type
	n.Config = nf.Config
	if nf.IsActive != nil {
		n.IsActive = *nf.IsActive
	} else if isNew {
		n.IsActive = true
	}
}
