package stalker

const guestName = "Guest"

// getProfile serves stb get_profile and do_auth. Unknown devices get a
// zeroed Guest profile; expired and disabled accounts get status 0 with
// the expiry and a message. A successful lookup refreshes last_active.
func (h *Handler) getProfile(req *request) (any, error) {
	settings := h.resolver.Settings()
	p := profile{
		Name:            guestName,
		MAC:             req.mac,
		DefaultTimezone: settings.Location().String(),
		Locale:          "en_GB.utf8",
	}
	if req.mac == "" {
		return p, nil
	}
	u, err := h.store.GetUserByMAC(req.ctx, req.mac)
	if err != nil {
		if isNotFound(err) {
			return p, nil
		}
		return nil, err
	}

	p.ID = u.ID
	p.Name = u.Username
	p.Login = u.Username
	p.MaxConnections = u.MaxConnections
	if u.ExpiryDate != nil {
		p.ExpDate = u.ExpiryDate.In(settings.Location()).Format(dateTimeLayout)
	}
	switch {
	case u.Blocked():
		p.Msg = "Account disabled"
		return p, nil
	case u.Expired(req.now):
		p.Msg = "Account expired on " + p.ExpDate
		return p, nil
	}

	p.Status = 1
	if err := h.store.TouchUserLastActive(req.ctx, u.ID, req.now); err != nil {
		h.log.Warn().Err(err).Int64("user_id", u.ID).Msg("touch last_active")
	}
	return p, nil
}
