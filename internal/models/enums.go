package models

// ServiceType: вид работ по заявке; тот же набор используется как экспертиза инженера.
type ServiceType string

const (
	ServiceDemoInstallation ServiceType = "demo_installation"
	ServiceRepair           ServiceType = "repair"
	ServiceMaintenance      ServiceType = "service"
	ServiceCalibration      ServiceType = "calibration"
)

var ServiceTypes = []ServiceType{ServiceDemoInstallation, ServiceRepair, ServiceMaintenance, ServiceCalibration}

func (t ServiceType) Valid() bool {
	for _, v := range ServiceTypes {
		if t == v {
			return true
		}
	}
	return false
}

// RequestStatus: состояние заявки.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusCompleted RequestStatus = "completed"
	StatusCancelled RequestStatus = "cancelled"
)

var RequestStatuses = []RequestStatus{StatusPending, StatusCompleted, StatusCancelled}

func (s RequestStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusCancelled
}

// UserType: тип учётной записи; в панель пускаем только admin.
type UserType string

const (
	UserAdmin UserType = "admin"
	UserStaff UserType = "user"
)

func (t UserType) Valid() bool { return t == UserAdmin || t == UserStaff }

// MemberRole: роль пользователя внутри организации.
type MemberRole string

const (
	RoleOwner   MemberRole = "owner"
	RoleManager MemberRole = "manager"
	RoleViewer  MemberRole = "viewer"
)

func (r MemberRole) Valid() bool { return r == RoleOwner || r == RoleManager || r == RoleViewer }

// DeviceAccess: область видимости устройств для участника организации.
type DeviceAccess string

const (
	AccessAll      DeviceAccess = "all"
	AccessSelected DeviceAccess = "selected"
)

func (a DeviceAccess) Valid() bool { return a == AccessAll || a == AccessSelected }
