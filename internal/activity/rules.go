// AngelaMos | 2026
// rules.go

package activity

import (
	"strings"
)

type rule struct {
	kind        Kind
	description string
}

// rules maps "METHOD /pattern" (relative to the API version prefix) to the
// activity it produces. Routes absent here are not audited.
var rules = map[string]rule{
	"POST /auth/register":        {KindRegistered, "Registered an account"},
	"POST /auth/login":           {KindLogin, "Signed in"},
	"POST /auth/logout":          {KindLogout, "Signed out"},
	"POST /auth/logout-all":      {KindLogout, "Signed out of every session"},
	"POST /auth/change-password": {KindPasswordChanged, "Changed password"},

	"PUT /members/me":    {KindProfileUpdated, "Updated contact details"},
	"DELETE /members/me": {KindAccountClosed, "Closed account"},

	"POST /applications":        {KindApplicationSubmitted, "Submitted a membership application"},
	"POST /payments":            {KindPaymentMade, "Submitted a payment"},
	"POST /payments/activation": {KindPaymentMade, "Submitted the activation fee"},
	"POST /shares/buy":          {KindSharesPurchased, "Submitted a share purchase"},
	"POST /claims":              {KindClaimSubmitted, "Submitted a claim"},

	"POST /admin/entries/{entryID}/approve":            {KindEntryReviewed, "Approved a ledger entry"},
	"POST /admin/entries/{entryID}/reject":             {KindEntryReviewed, "Rejected a ledger entry"},
	"POST /admin/applications/{applicationID}/approve": {KindApplicationReviewed, "Approved a membership application"},
	"POST /admin/applications/{applicationID}/reject":  {KindApplicationReviewed, "Rejected a membership application"},
	"PUT /admin/members/{memberID}":                    {KindMemberUpdated, "Edited a member"},
	"POST /admin/members/{memberID}/deductions":        {KindSharesDeducted, "Deducted shares from a member"},
	"POST /admin/shares/deduct-all":                    {KindSharesDeducted, "Deducted shares from every member"},

	"POST /admin/announcements":                    {KindAnnouncementChanged, "Published an announcement"},
	"PUT /admin/announcements/{announcementID}":    {KindAnnouncementChanged, "Edited an announcement"},
	"DELETE /admin/announcements/{announcementID}": {KindAnnouncementChanged, "Deleted an announcement"},
}

const versionPrefix = "/v1"

func match(method, pattern string) (rule, bool) {
	pattern = strings.TrimPrefix(pattern, versionPrefix)
	if len(pattern) > 1 {
		pattern = strings.TrimSuffix(pattern, "/")
	}
	r, ok := rules[method+" "+pattern]
	return r, ok
}
