package handlers

const (
	BtnApprove       = "✅ Accept"
	BtnDecline       = "❌ Decline"
	BtnCancelRequest = "🚫 Cancel request"
)

const (
	MsgWelcome = "👋 Welcome to the scrim finder!\n\n" +
		"Post a request and we will pair you with a team that wants the same format at an overlapping time.\n\n" +
		MsgHelp

	MsgHelp = "<b>Commands</b>\n" +
		"/scrim &lt;bo1|bo3|bo5&gt; &lt;time slot&gt; &lt;timezone&gt;\n" +
		"   e.g. <code>/scrim bo3 6PM-8PM IST</code>\n" +
		"/status - your current request and match\n" +
		"/cancel - withdraw your current request\n" +
		"/help - this message"

	MsgScrimUsage = "⚠️ Usage: <code>/scrim bo3 6PM-8PM IST</code>"

	MsgQueued = "🔍 Request #%d is in the queue.\n\n" +
		"<b>Format:</b> %s\n<b>Slot:</b> %s %s\n\n" +
		"We will message you as soon as an opponent shows up."

	MsgOpponentFound = "🎯 <b>Opponent found!</b>\n\n" +
		"<b>Match:</b> #%d\n<b>Format:</b> %s\n<b>Slot:</b> %s %s\n<b>Opponent captain:</b> <code>%d</code>\n\n" +
		"Accept within %d minutes or the match lapses."

	MsgAwaitingOpponent = "✅ You accepted match #%d. Waiting for the other captain..."
	MsgMatchApproved    = "🔥 Match #%d is on! Both captains accepted. Map bans come next."
	MsgYouDeclined      = "❌ You declined match #%d. Your request is back in the queue."
	MsgOpponentDeclined = "😕 The other captain declined match #%d. Your request is back in the queue."
	MsgCancelled        = "🚫 Request #%d cancelled."
	MsgNothingToCancel  = "ℹ️ You have no active request."
	MsgOpponentWithdrew = "😕 The other captain withdrew from match #%d. Your request is back in the queue."
	MsgNoActiveRequest  = "ℹ️ You have no active request. Post one with /scrim."
	MsgStatusRequest    = "📋 <b>Request #%d</b>\n<b>Status:</b> %s\n<b>Format:</b> %s\n<b>Slot:</b> %s %s\n<b>Expires:</b> %s UTC"
	MsgStatusMatch      = "\n\n🎯 <b>Match #%d</b>\n<b>Status:</b> %s\n<b>Opponent captain:</b> <code>%d</code>"

	MsgRateLimited   = "⏳ Slow down a little and try again in a minute."
	MsgAdminOnly     = "❌ Only admins can use this command."
	MsgExportEmpty   = "ℹ️ No matches in the last 7 days."
	MsgExportCaption = "📊 %d matches since %s"
	MsgUnknown       = "🤔 Unknown command. Send /help for the list."

	MsgErrInvalid   = "⚠️ %s"
	MsgErrConflict  = "⚠️ %s"
	MsgErrNotFound  = "❌ That request or match no longer exists."
	MsgErrForbidden = "❌ That match is not yours."
	MsgErrInternal  = "❌ Something went wrong, please try again."
)
