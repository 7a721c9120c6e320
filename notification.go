package headlessterm

// NotificationProvider returns the current desktop notification provider.
func (t *Terminal) NotificationProvider() NotificationProvider {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.notificationProvider
}

// SetNotificationProvider sets the handler for desktop notification requests (OSC 99).
// Passing nil disables notification delivery without panicking.
func (t *Terminal) SetNotificationProvider(p NotificationProvider) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notificationProvider = p
}

// DesktopNotification delivers an assembled OSC 99 payload to the configured provider.
// Query-type payloads (PayloadType "?") write the provider's reply back verbatim.
func (t *Terminal) DesktopNotification(payload *NotificationPayload) {
	if t.middleware != nil && t.middleware.DesktopNotification != nil {
		t.middleware.DesktopNotification(payload, t.desktopNotificationInternal)
		return
	}
	t.desktopNotificationInternal(payload)
}

func (t *Terminal) desktopNotificationInternal(payload *NotificationPayload) {
	t.mu.RLock()
	provider := t.notificationProvider
	t.mu.RUnlock()

	if provider == nil {
		return
	}

	reply := provider.Notify(payload)
	if reply != "" {
		t.writeResponseString(reply)
	}
}
