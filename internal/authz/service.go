package authz

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/truckdock/internal/constants"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiPrefix       = "/api"
	casbinTableName = "casbin_rule"
	rolePrefix      = "role:"
)

// 请求主体为 role:<name>，角色通过 g 继承低一级角色的全部策略
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

var (
	ErrUnavailable   = errors.New("authz service unavailable")
	ErrUnknownRole   = errors.New("unknown role")
	ErrInvalidAction = errors.New("invalid policy action")
)

// 可授予的 HTTP 动作
var grantableActions = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// Policy 权限策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// RolePolicies 角色的直接策略与含继承的有效策略
type RolePolicies struct {
	Role      string   `json:"role"`
	Level     int      `json:"level"`
	Inherits  []string `json:"inherits"`
	Policies  []Policy `json:"policies"`
	Effective []Policy `json:"effective"`
}

// Service casbin 授权服务，策略持久化在 casbin_rule 表
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务并加载已有策略
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// EnforceRole 判定角色能否以 act 访问路由模板 obj
func (s *Service) EnforceRole(role, obj, act string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	subject, err := RoleSubject(role)
	if err != nil {
		return false, err
	}
	return s.enforcer.Enforce(subject, NormalizeObject(obj), NormalizeAction(act))
}

// ListRoles 按权限等级从高到低列出内置角色主体
func (s *Service) ListRoles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(constants.RoleLevels))
	for name := range constants.RoleLevels {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return constants.RoleLevels[names[i]] > constants.RoleLevels[names[j]]
	})
	subjects := make([]string, len(names))
	for i, name := range names {
		subjects[i] = rolePrefix + name
	}
	return subjects, nil
}

// GrantRolePolicy 为内置角色追加策略，返回是否新增
func (s *Service) GrantRolePolicy(role, object, action string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	subject, err := RoleSubject(role)
	if err != nil {
		return false, err
	}
	act := NormalizeAction(action)
	if _, ok := grantableActions[act]; !ok {
		return false, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	added, err := s.enforcer.AddPolicy(subject, NormalizeObject(object), act)
	if err != nil {
		return false, fmt.Errorf("grant policy failed: %w", err)
	}
	return added, nil
}

// GetRolePolicies 查询角色直接持有的策略
func (s *Service) GetRolePolicies(role string) ([]Policy, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	subject, err := RoleSubject(role)
	if err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, subject)
	if err != nil {
		return nil, fmt.Errorf("get role policies failed: %w", err)
	}
	return toPolicies(rules), nil
}

// DescribeRole 汇总角色的继承链与有效策略
func (s *Service) DescribeRole(role string) (*RolePolicies, error) {
	direct, err := s.GetRolePolicies(role)
	if err != nil {
		return nil, err
	}
	subject, _ := RoleSubject(role)
	chain, err := s.inheritedRoles(subject)
	if err != nil {
		return nil, err
	}

	effective := append([]Policy(nil), direct...)
	for _, parent := range chain {
		rules, err := s.enforcer.GetFilteredPolicy(0, parent)
		if err != nil {
			return nil, fmt.Errorf("get inherited policies failed: %w", err)
		}
		effective = append(effective, toPolicies(rules)...)
	}
	sortPolicies(effective)

	return &RolePolicies{
		Role:      subject,
		Level:     constants.RoleLevels[strings.TrimPrefix(subject, rolePrefix)],
		Inherits:  chain,
		Policies:  direct,
		Effective: effective,
	}, nil
}

// inheritedRoles 沿 g 关系向下收集被继承的角色
func (s *Service) inheritedRoles(subject string) ([]string, error) {
	var chain []string
	seen := map[string]bool{subject: true}
	queue := []string{subject}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		parents, err := s.enforcer.GetRolesForUser(current)
		if err != nil {
			return nil, fmt.Errorf("get roles for %s failed: %w", current, err)
		}
		for _, parent := range parents {
			if seen[parent] {
				continue
			}
			seen[parent] = true
			chain = append(chain, parent)
			queue = append(queue, parent)
		}
	}
	return chain, nil
}

func toPolicies(rules [][]string) []Policy {
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{
			Subject: strings.TrimSpace(rule[0]),
			Object:  NormalizeObject(rule[1]),
			Action:  NormalizeAction(rule[2]),
		})
	}
	sortPolicies(policies)
	return policies
}

func sortPolicies(policies []Policy) {
	sort.SliceStable(policies, func(i, j int) bool {
		a, b := policies[i], policies[j]
		if a.Object != b.Object {
			return a.Object < b.Object
		}
		return a.Action < b.Action
	})
}

// RoleSubject 将角色名转换为 casbin 主体，仅接受内置角色
func RoleSubject(role string) (string, error) {
	name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(role)), rolePrefix)
	if _, ok := constants.RoleLevels[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return rolePrefix + name, nil
}

// NormalizeObject 统一授权资源路径，去掉 /api 前缀
func NormalizeObject(object string) string {
	path := strings.TrimSpace(object)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	switch {
	case path == apiPrefix:
		return "/"
	case strings.HasPrefix(path, apiPrefix+"/"):
		return path[len(apiPrefix):]
	}
	return path
}

// NormalizeAction 统一授权动作
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
