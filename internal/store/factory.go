package store

// Stores bundles every per-entity store over one DBTX. Construct it on the
// pool for normal use, or on a pgx.Tx to run a group of writes atomically.
type Stores struct {
	db DBTX
}

func NewStores(db DBTX) *Stores {
	return &Stores{db: db}
}

func (s *Stores) Events() EventStore {
	return newEventStore(s.db)
}

func (s *Stores) Notifications() NotificationStore {
	return newNotificationStore(s.db)
}

func (s *Stores) Emails() EmailStore {
	return newEmailStore(s.db)
}

func (s *Stores) Preferences() PreferenceStore {
	return newPreferenceStore(s.db)
}

func (s *Stores) Projects() ProjectStore {
	return newProjectStore(s.db)
}

func (s *Stores) Profiles() ProfileStore {
	return newProfileStore(s.db)
}

func (s *Stores) Resources() ResourceStore {
	return newResourceStore(s.db)
}

func (s *Stores) Permissions() PermissionStore {
	return newPermissionStore(s.db)
}

func (s *Stores) Threads() ThreadStore {
	return newThreadStore(s.db)
}

func (s *Stores) Meetings() MeetingStore {
	return newMeetingStore(s.db)
}

func (s *Stores) Resumes() ResumeStore {
	return newResumeStore(s.db)
}

func (s *Stores) Digests() DigestStore {
	return newDigestStore(s.db)
}

func (s *Stores) Calendars() CalendarStore {
	return newCalendarStore(s.db)
}
